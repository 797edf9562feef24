package types

import (
	"go.uber.org/zap"

	"typelib/internal/trace"
	"typelib/internal/typeerr"
)

// CopyTo makes t and its dependencies available in dst and returns dst's
// descriptor. Types dst already has are validated with ValidateMerge and
// reused. The copies carry their own metadata.
func (t *Type) CopyTo(dst *Registry) (*Type, error) {
	if t.registry == dst {
		return t, nil
	}
	c := &copier{dst: dst, inProgress: make(map[string]bool, 4)}
	m := dst.mark()
	out, err := c.copy(t)
	if err != nil {
		dst.rollback(m)
		return nil, err
	}
	return out, nil
}

type copier struct {
	dst *Registry
	// compounds whose fields are still being copied; they are already
	// registered in dst but not comparable yet
	inProgress map[string]bool
}

func (c *copier) copy(src *Type) (*Type, error) {
	if existing, ok := c.dst.lookupType(src.name); ok {
		if c.inProgress[src.name] {
			return existing, nil
		}
		if err := ValidateMerge(existing, src); err != nil {
			return nil, err
		}
		return existing, nil
	}

	var (
		t   *Type
		err error
	)
	switch src.kind {
	case KindType:
		t, err = c.dst.CreateType(src.name, TypeOptions{Size: src.size, Opaque: src.opaque, Null: src.null})
	case KindNumeric:
		t, err = c.dst.CreateNumeric(src.name, src.size, src.category)
	case KindCharacter:
		t, err = c.dst.CreateCharacter(src.name, src.size)
	case KindEnum:
		t, err = c.dst.CreateEnum(src.name, src.size, func(b *EnumBuilder) error {
			for _, s := range src.Symbols() {
				if err := b.Add(s.Name, s.Value); err != nil {
					return err
				}
			}
			return nil
		})
	case KindArray:
		t, err = c.copyArray(src)
	case KindContainer:
		t, err = c.copyContainer(src)
	case KindCompound:
		t, err = c.copyCompound(src)
	default:
		err = typeerr.New(typeerr.ClassStructural, typeerr.KindMismatchingTypeModel).
			Type(src.name).
			Detail("cannot copy a %s type", src.kind).
			Build()
	}
	if err != nil {
		return nil, err
	}
	t.meta.Merge(src.meta)
	Logger().Debug("type copied", zap.String("name", t.name), zap.Stringer("kind", t.kind))
	return t, nil
}

func (c *copier) copyArray(src *Type) (*Type, error) {
	elem, err := c.copy(src.Element())
	if err != nil {
		return nil, err
	}
	// the element copy may have pulled src in through a cycle
	if existing, ok := c.dst.lookupType(src.name); ok {
		return existing, ValidateMerge(existing, src)
	}
	return c.dst.CreateArray(elem, src.length)
}

func (c *copier) copyContainer(src *Type) (*Type, error) {
	model, ok := src.registry.ContainerModel(src.model)
	if !ok {
		return nil, typeerr.NotFound("container model", src.model)
	}
	if _, err := c.dst.ensureModel(model); err != nil {
		return nil, err
	}
	elem, err := c.copy(src.Element())
	if err != nil {
		return nil, err
	}
	if existing, ok := c.dst.lookupType(src.name); ok {
		return existing, ValidateMerge(existing, src)
	}
	return c.dst.CreateContainer(src.model, elem,
		WithContainerSize(src.size),
		WithRandomAccess(src.randomAccess))
}

func (c *copier) copyCompound(src *Type) (*Type, error) {
	c.inProgress[src.name] = true
	defer delete(c.inProgress, src.name)
	return c.dst.CreateCompound(src.name, func(b *CompoundBuilder) error {
		for _, f := range src.Fields() {
			ft, err := c.copy(f.Type())
			if err != nil {
				return err
			}
			if _, err := b.Add(f.Name, ft,
				AtOffset(f.Offset),
				WithSkip(f.Skip),
				WithFieldMetadata(f.meta)); err != nil {
				return err
			}
		}
		return nil
	}, WithCompoundSize(src.size))
}

// Minimal returns a new registry holding only t and its transitive
// dependencies. With withAliases, aliases of the copied types come along.
func (r *Registry) Minimal(t *Type, withAliases bool) (*Registry, error) {
	if err := r.checkOwned(t); err != nil {
		return nil, err
	}
	span := trace.Begin(r.tracer, trace.ScopeRegistry, "minimal", 0).WithExtra("root", t.name)
	out := NewRegistry()
	out.SetTracer(r.tracer)
	if _, err := t.CopyTo(out); err != nil {
		span.End(err.Error())
		return nil, err
	}
	if withAliases {
		for _, alias := range r.aliasSeq {
			target, ok := out.lookupType(r.types[r.aliases[alias]].name)
			if !ok {
				continue
			}
			if err := out.CreateAlias(alias, target); err != nil {
				span.End(err.Error())
				return nil, err
			}
		}
	}
	span.End("")
	return out, nil
}

// Copy returns an independent registry holding every type, alias and
// container model of r.
func (r *Registry) Copy() (*Registry, error) {
	out := NewRegistry()
	out.SetTracer(r.tracer)
	if err := out.Merge(r); err != nil {
		return nil, err
	}
	return out, nil
}
