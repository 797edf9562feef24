package types

// ModelEqual reports whether a and b, possibly from different registries,
// describe the same type: same variant, name, size, flags and structure.
func ModelEqual(a, b *Type) bool {
	return modelEqual(a, b, make(map[[2]*Type]bool, 8))
}

func modelEqual(a, b *Type, assumed map[[2]*Type]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	key := [2]*Type{a, b}
	if assumed[key] {
		return true
	}
	if a.kind != b.kind || a.name != b.name || a.size != b.size ||
		a.opaque != b.opaque || a.null != b.null {
		return false
	}
	assumed[key] = true

	switch a.kind {
	case KindNumeric:
		return a.category == b.category
	case KindEnum:
		return symbolsEqual(a.Symbols(), b.Symbols())
	case KindArray:
		return a.length == b.length && modelEqual(a.Element(), b.Element(), assumed)
	case KindContainer:
		return a.model == b.model && a.randomAccess == b.randomAccess &&
			modelEqual(a.Element(), b.Element(), assumed)
	case KindCompound:
		fa, fb := a.Fields(), b.Fields()
		if len(fa) != len(fb) {
			return false
		}
		for i := range fa {
			if fa[i].Name != fb[i].Name || fa[i].Offset != fb[i].Offset || fa[i].Skip != fb[i].Skip {
				return false
			}
			if !modelEqual(fa[i].Type(), fb[i].Type(), assumed) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func symbolsEqual(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	values := make(map[string]int64, len(a))
	for _, s := range a {
		values[s.Name] = s.Value
	}
	for _, s := range b {
		if v, ok := values[s.Name]; !ok || v != s.Value {
			return false
		}
	}
	return true
}

// SameTypes reports whether r and other hold the same names, each
// model-equal. Aliases must resolve to the same type names.
func (r *Registry) SameTypes(other *Registry) bool {
	if r.Len() != other.Len() || len(r.aliases) != len(other.aliases) {
		return false
	}
	for _, t := range r.types[1:] {
		o, ok := other.lookupType(t.name)
		if !ok || !ModelEqual(t, o) {
			return false
		}
	}
	for name, id := range r.aliases {
		o, ok := other.AliasTarget(name)
		if !ok || o.name != r.types[id].name {
			return false
		}
	}
	return true
}

// CastsTo reports whether a buffer holding a value of t can be read as a
// value of candidate: the types are model-equal, t is an array or container
// whose element casts to candidate, or t is a compound whose first field
// casts to candidate. The relation recurses through nested elements, so
// /int32[2][3] casts to /int32[2] and to /int32.
func (t *Type) CastsTo(candidate *Type) bool {
	return t.castsTo(candidate, make(map[*Type]bool, 4))
}

func (t *Type) castsTo(candidate *Type, seen map[*Type]bool) bool {
	if ModelEqual(t, candidate) {
		return true
	}
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.kind {
	case KindArray, KindContainer:
		return t.Element().castsTo(candidate, seen)
	case KindCompound:
		if f, ok := t.FieldAt(0); ok {
			return f.Type().castsTo(candidate, seen)
		}
	}
	return false
}
