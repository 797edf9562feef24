package types

import (
	"fmt"

	"fortio.org/safecast"

	"typelib/internal/metadata"
	"typelib/internal/typeerr"
)

// Field is one field of a compound.
type Field struct {
	owner *Type
	typ   TypeID

	Index  int
	Name   string
	Offset uint64
	// Skip is the padding that follows the field.
	Skip uint64

	meta *metadata.MetaData
}

// Type returns the field's element type.
func (f *Field) Type() *Type {
	return f.owner.registry.byID(f.typ)
}

// Compound returns the compound the field belongs to.
func (f *Field) Compound() *Type {
	return f.owner
}

// Metadata returns the field's own metadata.
func (f *Field) Metadata() *metadata.MetaData {
	return f.meta
}

// End returns the offset right after the field's static size.
func (f *Field) End() uint64 {
	return f.Offset + f.Type().size
}

type compoundInfo struct {
	fields  []*Field
	byName  map[string]int
	hasSize bool
}

// Fields returns the compound's fields in index order.
func (t *Type) Fields() []*Field {
	info := t.compoundInfo()
	if info == nil {
		return nil
	}
	return append([]*Field(nil), info.fields...)
}

// Field returns the field called name.
func (t *Type) Field(name string) (*Field, bool) {
	info := t.compoundInfo()
	if info == nil {
		return nil, false
	}
	idx, ok := info.byName[name]
	if !ok {
		return nil, false
	}
	return info.fields[idx], true
}

// FieldAt returns the field at position index.
func (t *Type) FieldAt(index int) (*Field, bool) {
	info := t.compoundInfo()
	if info == nil || index < 0 || index >= len(info.fields) {
		return nil, false
	}
	return info.fields[index], true
}

// FieldCount returns the number of fields of a compound.
func (t *Type) FieldCount() int {
	info := t.compoundInfo()
	if info == nil {
		return 0
	}
	return len(info.fields)
}

func (t *Type) compoundInfo() *compoundInfo {
	if t.kind != KindCompound || t.payload == 0 || int(t.payload) >= len(t.registry.compounds) {
		return nil
	}
	return &t.registry.compounds[t.payload]
}

func (r *Registry) appendCompoundInfo() uint32 {
	r.compounds = append(r.compounds, compoundInfo{byName: make(map[string]int, 8)})
	slot, err := safecast.Conv[uint32](len(r.compounds) - 1)
	if err != nil {
		panic(fmt.Errorf("compound info overflow: %w", err))
	}
	return slot
}

// CompoundOption configures CreateCompound.
type CompoundOption func(*compoundConfig)

type compoundConfig struct {
	size    uint64
	hasSize bool
	meta    *metadata.MetaData
}

// WithCompoundSize sets the compound size instead of deriving it from the
// last field.
func WithCompoundSize(size uint64) CompoundOption {
	return func(c *compoundConfig) {
		c.size = size
		c.hasSize = true
	}
}

// WithCompoundMetadata attaches metadata at creation.
func WithCompoundMetadata(md *metadata.MetaData) CompoundOption {
	return func(c *compoundConfig) { c.meta = md }
}

// FieldOption configures CompoundBuilder.Add.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	offset    uint64
	hasOffset bool
	skip      uint64
	meta      *metadata.MetaData
}

// AtOffset places the field at an explicit byte offset.
func AtOffset(offset uint64) FieldOption {
	return func(c *fieldConfig) {
		c.offset = offset
		c.hasOffset = true
	}
}

// WithSkip sets the padding after the field.
func WithSkip(skip uint64) FieldOption {
	return func(c *fieldConfig) { c.skip = skip }
}

// WithFieldMetadata attaches metadata to the field.
func WithFieldMetadata(md *metadata.MetaData) FieldOption {
	return func(c *fieldConfig) { c.meta = md }
}

// CompoundBuilder adds fields to a compound under construction.
type CompoundBuilder struct {
	compound *Type
}

// Type returns the compound being built, already registered.
func (b *CompoundBuilder) Type() *Type {
	return b.compound
}

// Add appends a field of type t. Without AtOffset the field starts right
// after the previous field and its skip. With AtOffset past the previous
// field's end, the gap replaces the previous field's skip.
func (b *CompoundBuilder) Add(name string, t *Type, opts ...FieldOption) (*Field, error) {
	c := b.compound
	r := c.registry
	if t == nil || !r.Owns(t) {
		typeName := "<nil>"
		if t != nil {
			typeName = t.name
		}
		return nil, typeerr.New(typeerr.ClassOwnership, typeerr.KindForeignType).
			Type(c.name).
			Field(name).
			Other(typeName).
			Detail("field type is not owned by the compound's registry").
			Build()
	}
	info := c.compoundInfo()
	if _, dup := info.byName[name]; dup {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateField).
			Type(c.name).
			Field(name).
			Detail("field already defined").
			Build()
	}
	if name == "" {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateField).
			Type(c.name).
			Detail("field name must not be empty").
			Build()
	}
	if t == c {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
			Type(c.name).
			Field(name).
			Detail("a compound cannot contain itself by value").
			Build()
	}

	var cfg fieldConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	offset := uint64(0)
	if n := len(info.fields); n > 0 {
		last := info.fields[n-1]
		offset = last.Offset + last.Type().size + last.Skip
	}
	if cfg.hasOffset {
		switch n := len(info.fields); {
		case n == 0 && cfg.offset != 0:
			return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidOffset).
				Type(c.name).
				Field(name).
				Detail("first field must be at offset 0, got %d", cfg.offset).
				Build()
		case n > 0 && cfg.offset < info.fields[n-1].Offset:
			return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidOffset).
				Type(c.name).
				Field(name).
				Detail("offset %d precedes previous field at %d", cfg.offset, info.fields[n-1].Offset).
				Build()
		}
		offset = cfg.offset
		// the gap up to an explicit offset becomes the previous field's skip
		if n := len(info.fields); n > 0 {
			if last := info.fields[n-1]; offset >= last.End() {
				last.Skip = offset - last.End()
			}
		}
	}

	f := &Field{
		owner:  c,
		typ:    t.id,
		Index:  len(info.fields),
		Name:   name,
		Offset: offset,
		Skip:   cfg.skip,
		meta:   metadata.New(),
	}
	if cfg.meta != nil {
		f.meta.Merge(cfg.meta)
	}
	info.byName[name] = f.Index
	info.fields = append(info.fields, f)
	c.addDependency(t.id)
	if end := f.End() + f.Skip; !info.hasSize && end > c.size {
		c.size = end
	}
	return f, nil
}

// AddNamed resolves typeName with Registry.Build and adds the field.
func (b *CompoundBuilder) AddNamed(name, typeName string, opts ...FieldOption) (*Field, error) {
	t, err := b.compound.registry.Build(typeName)
	if err != nil {
		return nil, err
	}
	return b.Add(name, t, opts...)
}

// CreateCompound registers a compound and runs build to add its fields. The
// compound is registered before build runs so fields may refer back to it
// through containers. When build fails, everything it registered is
// discarded together with the compound.
func (r *Registry) CreateCompound(name string, build func(*CompoundBuilder) error, opts ...CompoundOption) (*Type, error) {
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	var cfg compoundConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m := r.mark()
	t := r.register(&Type{name: name, kind: KindCompound, payload: r.appendCompoundInfo()})
	if cfg.meta != nil {
		t.meta.Merge(cfg.meta)
	}
	info := t.compoundInfo()
	info.hasSize = cfg.hasSize
	if cfg.hasSize {
		t.size = cfg.size
	}
	if build != nil {
		if err := build(&CompoundBuilder{compound: t}); err != nil {
			r.rollback(m)
			return nil, err
		}
	}
	// build may register other compounds and move the side table
	info = t.compoundInfo()
	if t.size == 0 {
		r.rollback(m)
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
			Type(name).
			Detail("compound has size 0").
			Build()
	}
	if cfg.hasSize && len(info.fields) > 0 {
		last := info.fields[len(info.fields)-1]
		if end := last.End(); end > t.size {
			r.rollback(m)
			return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
				Type(name).
				Field(last.Name).
				Detail("field ends at %d past compound size %d", end, t.size).
				Build()
		}
	}
	return t, nil
}
