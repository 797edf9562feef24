package types

import (
	"go.uber.org/zap"

	"typelib/internal/trace"
	"typelib/internal/typeerr"
	"typelib/internal/typename"
)

// Build resolves name to a descriptor. Registered names and aliases are
// returned as is; array ("/T[N]") and container ("/model</T>") names are
// instantiated on demand once their element type resolves.
func (r *Registry) Build(name string) (*Type, error) {
	name = typename.Normalize(name)
	if t, ok := r.FindByName(name); ok {
		return t, nil
	}
	if err := typename.Validate(name, true); err != nil {
		return nil, err
	}

	span := trace.Begin(r.tracer, trace.ScopeType, "build", 0).WithExtra("name", name)
	t, err := r.build(name)
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	span.End("")
	return t, nil
}

func (r *Registry) build(name string) (*Type, error) {
	if t, ok := r.FindByName(name); ok {
		return t, nil
	}

	if elemName, length, ok := typename.SplitArray(name); ok {
		elem, err := r.build(elemName)
		if err != nil {
			return nil, err
		}
		t, err := r.CreateArray(elem, length)
		if err != nil {
			return nil, err
		}
		Logger().Debug("array instantiated", zap.String("name", t.name))
		return t, nil
	}

	base, args := typename.ParseTemplate(name)
	if args != nil && r.HasContainerModel(base) {
		if len(args) != 1 {
			return nil, typeerr.InvalidTypeName(name, base, "container models take exactly one type argument")
		}
		elem, err := r.build(args[0])
		if err != nil {
			return nil, err
		}
		return r.CreateContainer(base, elem)
	}
	return nil, typeerr.NotFound("type", name)
}
