// Package layout walks buffers holding values of registry types: it finds
// how many bytes a value spans, locates array and container elements, and
// exposes typed views over the bytes.
//
// Types whose size never depends on the content answer in constant time.
// Containers are self-describing; their header is decoded by the
// ContainerEncoding registered for their model, a count prefix by default.
package layout
