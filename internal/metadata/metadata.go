// Package metadata provides the ordered string multimap attached to types
// and compound fields.
package metadata

import "slices"

// MetaData maps keys to sets of values. Keys and values keep their
// insertion order so descriptions and snapshots are deterministic.
type MetaData struct {
	keys   []string
	values map[string][]string
}

// New returns an empty MetaData.
func New() *MetaData {
	return &MetaData{}
}

// FromMap builds a MetaData from a plain map. Keys are sorted since map
// iteration order is unspecified.
func FromMap(m map[string][]string) *MetaData {
	md := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		md.Add(k, m[k]...)
	}
	return md
}

// Add appends values to key, skipping values already present.
func (md *MetaData) Add(key string, values ...string) {
	if md.values == nil {
		md.values = make(map[string][]string, 4)
	}
	cur, ok := md.values[key]
	if !ok {
		md.keys = append(md.keys, key)
	}
	for _, v := range values {
		if !slices.Contains(cur, v) {
			cur = append(cur, v)
		}
	}
	md.values[key] = cur
}

// Set replaces the values of key.
func (md *MetaData) Set(key string, values ...string) {
	md.Delete(key)
	md.Add(key, values...)
}

// Delete removes key and its values.
func (md *MetaData) Delete(key string) {
	if _, ok := md.values[key]; !ok {
		return
	}
	delete(md.values, key)
	md.keys = slices.DeleteFunc(md.keys, func(k string) bool { return k == key })
}

// Get returns a copy of the values of key.
func (md *MetaData) Get(key string) []string {
	if md == nil {
		return nil
	}
	return slices.Clone(md.values[key])
}

// Has reports whether key has at least one entry.
func (md *MetaData) Has(key string) bool {
	if md == nil {
		return false
	}
	_, ok := md.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (md *MetaData) Keys() []string {
	if md == nil {
		return nil
	}
	return slices.Clone(md.keys)
}

// Len returns the number of keys.
func (md *MetaData) Len() int {
	if md == nil {
		return 0
	}
	return len(md.keys)
}

// Empty reports whether there are no keys.
func (md *MetaData) Empty() bool {
	return md.Len() == 0
}

// Each calls fn for every key in insertion order.
func (md *MetaData) Each(fn func(key string, values []string)) {
	if md == nil {
		return
	}
	for _, k := range md.keys {
		fn(k, md.values[k])
	}
}

// Merge adds every value of other, giving the union per key.
func (md *MetaData) Merge(other *MetaData) {
	other.Each(func(key string, values []string) {
		md.Add(key, values...)
	})
}

// Clone returns an independent copy.
func (md *MetaData) Clone() *MetaData {
	out := New()
	out.Merge(md)
	return out
}

// Equal compares keys and value sets, ignoring order.
func (md *MetaData) Equal(other *MetaData) bool {
	if md.Len() != other.Len() {
		return false
	}
	equal := true
	md.Each(func(key string, values []string) {
		theirs := other.Get(key)
		if len(theirs) != len(values) {
			equal = false
			return
		}
		for _, v := range values {
			if !slices.Contains(theirs, v) {
				equal = false
				return
			}
		}
	})
	return equal
}

// ToMap returns a plain map copy, nil when empty.
func (md *MetaData) ToMap() map[string][]string {
	if md.Empty() {
		return nil
	}
	out := make(map[string][]string, md.Len())
	md.Each(func(key string, values []string) {
		out[key] = slices.Clone(values)
	})
	return out
}
