package types

import (
	"typelib/internal/typeerr"
	"typelib/internal/typename"
)

// ContainerModel is a registry-scoped kind of dynamic container, e.g.
// "/std/vector". Containers are instantiated per element type as
// "Model<Element>".
type ContainerModel struct {
	Name string
	// Size is the static size of an instantiation unless overridden.
	Size uint64
	// RandomAccess is the default capability of instantiations.
	RandomAccess bool
}

// ContainerModelOptions configures RegisterContainerModel.
type ContainerModelOptions struct {
	Size         uint64
	RandomAccess bool
}

// RegisterContainerModel declares a new container model.
func (r *Registry) RegisterContainerModel(name string, opts ContainerModelOptions) (*ContainerModel, error) {
	name = typename.Normalize(name)
	if err := typename.Validate(name, true); err != nil {
		return nil, err
	}
	if _, ok := r.models[name]; ok {
		return nil, typeerr.New(typeerr.ClassName, typeerr.KindDuplicateTypeName).
			Type(name).
			Detail("container model already registered").
			Build()
	}
	m := &ContainerModel{Name: name, Size: opts.Size, RandomAccess: opts.RandomAccess}
	r.models[name] = m
	r.modelSeq = append(r.modelSeq, name)
	return m, nil
}

// HasContainerModel reports whether name is a registered container model.
func (r *Registry) HasContainerModel(name string) bool {
	_, ok := r.models[typename.Normalize(name)]
	return ok
}

// ContainerModel returns the model registered under name.
func (r *Registry) ContainerModel(name string) (*ContainerModel, bool) {
	m, ok := r.models[typename.Normalize(name)]
	return m, ok
}

// ContainerModels returns the models in registration order.
func (r *Registry) ContainerModels() []*ContainerModel {
	out := make([]*ContainerModel, 0, len(r.modelSeq))
	for _, name := range r.modelSeq {
		out = append(out, r.models[name])
	}
	return out
}

// AliasTarget returns the type an alias resolves to.
func (r *Registry) AliasTarget(alias string) (*Type, bool) {
	id, ok := r.aliases[typename.Normalize(alias)]
	if !ok {
		return nil, false
	}
	return r.types[id], true
}

// ensureModel makes the model named in src available in r, registering a
// copy when r does not know it yet.
func (r *Registry) ensureModel(src *ContainerModel) (*ContainerModel, error) {
	if m, ok := r.models[src.Name]; ok {
		if m.Size != src.Size || m.RandomAccess != src.RandomAccess {
			return nil, typeerr.Mismatch(typeerr.KindMismatchingContainerModel, m.Name, src.Name,
				"model size/random access %d/%v vs %d/%v", m.Size, m.RandomAccess, src.Size, src.RandomAccess)
		}
		return m, nil
	}
	return r.RegisterContainerModel(src.Name, ContainerModelOptions{Size: src.Size, RandomAccess: src.RandomAccess})
}
