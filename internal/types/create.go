package types

import (
	"math/bits"

	"go.uber.org/zap"

	"typelib/internal/metadata"
	"typelib/internal/typeerr"
	"typelib/internal/typename"
)

// TypeOptions configures CreateType.
type TypeOptions struct {
	Size     uint64
	Opaque   bool
	Null     bool
	Metadata *metadata.MetaData
}

func checkSize(name string, size uint64) error {
	if size == 0 {
		return typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
			Type(name).
			Detail("size 0 is only valid for null types").
			Build()
	}
	return nil
}

func attachMetadata(t *Type, md *metadata.MetaData) *Type {
	if md != nil {
		t.meta.Merge(md)
	}
	return t
}

// CreateType registers a plain type, typically opaque or null.
func (r *Registry) CreateType(name string, opts TypeOptions) (*Type, error) {
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	if !opts.Null {
		if err := checkSize(name, opts.Size); err != nil {
			return nil, err
		}
	}
	t := r.register(&Type{
		name:   name,
		kind:   KindType,
		size:   opts.Size,
		opaque: opts.Opaque,
		null:   opts.Null,
	})
	return attachMetadata(t, opts.Metadata), nil
}

// CreateNumeric registers a numeric type.
func (r *Registry) CreateNumeric(name string, size uint64, category NumericCategory) (*Type, error) {
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	if err := checkSize(name, size); err != nil {
		return nil, err
	}
	return r.register(&Type{name: name, kind: KindNumeric, size: size, category: category}), nil
}

// CreateCharacter registers a character type.
func (r *Registry) CreateCharacter(name string, size uint64) (*Type, error) {
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	if err := checkSize(name, size); err != nil {
		return nil, err
	}
	return r.register(&Type{name: name, kind: KindCharacter, size: size}), nil
}

// CreateArray returns the array of length elements of elem, creating it
// when needed. Its name is elem's name with a "[length]" suffix.
func (r *Registry) CreateArray(elem *Type, length uint64) (*Type, error) {
	if err := r.checkOwned(elem); err != nil {
		return nil, err
	}
	name := typename.ArrayName(elem.name, length)
	if existing, ok := r.lookupType(name); ok {
		if existing.kind != KindArray || existing.elem != elem.id || existing.length != length {
			return nil, typeerr.DuplicateTypeName(name)
		}
		return existing, nil
	}
	if length == 0 {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
			Type(name).
			Detail("arrays need at least one element").
			Build()
	}
	hi, size := bits.Mul64(elem.size, length)
	if hi != 0 {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindInvalidSize).
			Type(name).
			Detail("array size overflows").
			Build()
	}
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	t := r.register(&Type{name: name, kind: KindArray, size: size, elem: elem.id, length: length})
	t.addDependency(elem.id)
	return t, nil
}

// ContainerOption configures CreateContainer.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	size            uint64
	hasSize         bool
	randomAccess    bool
	hasRandomAccess bool
}

// WithContainerSize overrides the model's static size.
func WithContainerSize(size uint64) ContainerOption {
	return func(c *containerConfig) {
		c.size = size
		c.hasSize = true
	}
}

// WithRandomAccess overrides the model's random access capability.
func WithRandomAccess(v bool) ContainerOption {
	return func(c *containerConfig) {
		c.randomAccess = v
		c.hasRandomAccess = true
	}
}

// CreateContainer returns the instantiation of model for elem, creating it
// when needed. Its name is "Model<Element>".
func (r *Registry) CreateContainer(model string, elem *Type, opts ...ContainerOption) (*Type, error) {
	if err := r.checkOwned(elem); err != nil {
		return nil, err
	}
	m, ok := r.ContainerModel(model)
	if !ok {
		return nil, typeerr.NotFound("container model", model)
	}
	cfg := containerConfig{size: m.Size, randomAccess: m.RandomAccess}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := typename.Template(m.Name, elem.name)
	if existing, ok := r.lookupType(name); ok {
		if existing.kind != KindContainer || existing.elem != elem.id || existing.model != m.Name {
			return nil, typeerr.DuplicateTypeName(name)
		}
		return existing, nil
	}
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	if err := checkSize(name, cfg.size); err != nil {
		return nil, err
	}
	t := r.register(&Type{
		name:         name,
		kind:         KindContainer,
		size:         cfg.size,
		elem:         elem.id,
		model:        m.Name,
		randomAccess: cfg.randomAccess,
	})
	t.addDependency(elem.id)
	Logger().Debug("container instantiated",
		zap.String("name", name),
		zap.String("model", m.Name))
	return t, nil
}
