// Package typename implements the grammar of canonical type names.
//
// A canonical name is absolute ("/ns/Name"), may carry template arguments
// ("/std/vector</int32>", "/Fixed</uint8,16>") and array suffixes
// ("/int32[4]", "/int32[2][4]"). Template arguments are either signed
// integer literals or absolute type names.
//
// The package is pure and stateless: the registry uses it to validate names
// on creation and to decompose array and template names when it builds
// types on demand.
package typename
