package types

// Description is the plain-data view of a descriptor, shaped for JSON and
// msgpack output. Size and offsets are only filled when layout information
// was requested.
type Description struct {
	Name     string              `json:"name" msgpack:"name"`
	Class    string              `json:"class" msgpack:"class"`
	Size     *uint64             `json:"size,omitempty" msgpack:"size,omitempty"`
	Opaque   bool                `json:"opaque,omitempty" msgpack:"opaque,omitempty"`
	Null     bool                `json:"null,omitempty" msgpack:"null,omitempty"`
	Metadata map[string][]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`

	Category string   `json:"category,omitempty" msgpack:"category,omitempty"`
	Symbols  []Symbol `json:"symbols,omitempty" msgpack:"symbols,omitempty"`

	Fields []FieldDescription `json:"fields,omitempty" msgpack:"fields,omitempty"`

	Element      *Description `json:"element,omitempty" msgpack:"element,omitempty"`
	Length       uint64       `json:"length,omitempty" msgpack:"length,omitempty"`
	Model        string       `json:"model,omitempty" msgpack:"model,omitempty"`
	RandomAccess bool         `json:"random_access,omitempty" msgpack:"random_access,omitempty"`
}

// FieldDescription describes one compound field.
type FieldDescription struct {
	Name     string              `json:"name" msgpack:"name"`
	Type     Description         `json:"type" msgpack:"type"`
	Offset   *uint64             `json:"offset,omitempty" msgpack:"offset,omitempty"`
	Skip     uint64              `json:"skip,omitempty" msgpack:"skip,omitempty"`
	Metadata map[string][]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// DescribeOptions selects how much Describe expands.
type DescribeOptions struct {
	// Recursive expands field and element types instead of naming them.
	Recursive bool
	// LayoutInfo adds sizes and field offsets.
	LayoutInfo bool
}

// Describe converts t to its plain-data form. Referenced types are given by
// name only unless opts.Recursive is set; recursive descriptions stop at
// types already being described.
func (t *Type) Describe(opts DescribeOptions) Description {
	return t.describe(opts, make(map[*Type]bool, 4))
}

func (t *Type) describe(opts DescribeOptions, active map[*Type]bool) Description {
	d := Description{
		Name:     t.name,
		Class:    t.kind.String(),
		Opaque:   t.opaque,
		Null:     t.null,
		Metadata: t.meta.ToMap(),
	}
	if opts.LayoutInfo {
		size := t.size
		d.Size = &size
	}

	ref := func(x *Type) Description {
		if !opts.Recursive || active[x] {
			return Description{Name: x.name}
		}
		return x.describe(opts, active)
	}

	active[t] = true
	defer delete(active, t)

	switch t.kind {
	case KindNumeric:
		d.Category = t.category.String()
	case KindEnum:
		d.Symbols = t.Symbols()
	case KindArray:
		elem := ref(t.Element())
		d.Element = &elem
		d.Length = t.length
	case KindContainer:
		elem := ref(t.Element())
		d.Element = &elem
		d.Model = t.model
		d.RandomAccess = t.randomAccess
	case KindCompound:
		fields := t.compoundInfo().fields
		d.Fields = make([]FieldDescription, 0, len(fields))
		for _, f := range fields {
			fd := FieldDescription{
				Name:     f.Name,
				Type:     ref(f.Type()),
				Skip:     f.Skip,
				Metadata: f.meta.ToMap(),
			}
			if opts.LayoutInfo {
				offset := f.Offset
				fd.Offset = &offset
			}
			d.Fields = append(d.Fields, fd)
		}
	}
	return d
}

// DescribeAll describes every type of r, dependencies first.
func (r *Registry) DescribeAll(opts DescribeOptions) []Description {
	sorted := r.Sorted()
	out := make([]Description, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, t.Describe(opts))
	}
	return out
}
