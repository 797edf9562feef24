package types

// RecursiveDependencies returns the transitive closure of t's dependencies,
// t itself excluded. The result is memoized until a dependency edge is added
// anywhere in the registry.
func (t *Type) RecursiveDependencies() []*Type {
	r := t.registry
	if t.closure == nil || t.closureGen != r.generation {
		t.closure = r.closureOf(t.id)
		t.closureGen = r.generation
	}
	return r.resolve(t.closure)
}

// DependsOn reports whether other is in t's dependency closure.
func (t *Type) DependsOn(other *Type) bool {
	for _, d := range t.RecursiveDependencies() {
		if d == other {
			return true
		}
	}
	return false
}

func (r *Registry) closureOf(root TypeID) []TypeID {
	seen := map[TypeID]struct{}{root: {}}
	out := make([]TypeID, 0, 8)
	stack := append([]TypeID(nil), r.types[root].deps...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		stack = append(stack, r.types[id].deps...)
	}
	return out
}

// FixedBufferSize reports whether the in-buffer size of a value of t never
// depends on the buffer content.
func (t *Type) FixedBufferSize() bool {
	return t.fixedBufferSize(make(map[TypeID]bool, 4))
}

func (t *Type) fixedBufferSize(visiting map[TypeID]bool) bool {
	switch t.kind {
	case KindContainer:
		return false
	case KindArray, KindCompound:
		// a cycle that does not go through a container has no finite size
		if visiting[t.id] {
			return false
		}
		visiting[t.id] = true
		defer delete(visiting, t.id)
		if t.kind == KindArray {
			return t.Element().fixedBufferSize(visiting)
		}
		for _, f := range t.compoundInfo().fields {
			if !f.Type().fixedBufferSize(visiting) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ContainsOpaques reports whether t or any of its dependencies is opaque.
func (t *Type) ContainsOpaques() bool {
	if t.opaque {
		return true
	}
	for _, d := range t.RecursiveDependencies() {
		if d.opaque {
			return true
		}
	}
	return false
}

// Sorted returns every type so that dependencies come before the types
// using them. Dependency cycles, which only close through containers, are
// cut at the type first reached again.
func (r *Registry) Sorted() []*Type {
	return r.sortFrom(r.types[1:])
}

func (r *Registry) sortFrom(roots []*Type) []*Type {
	const (
		unseen = iota
		active
		done
	)
	state := make([]uint8, len(r.types))
	out := make([]*Type, 0, len(roots))
	var visit func(id TypeID)
	visit = func(id TypeID) {
		if state[id] != unseen {
			return
		}
		state[id] = active
		for _, d := range r.types[id].deps {
			visit(d)
		}
		state[id] = done
		out = append(out, r.types[id])
	}
	for _, t := range roots {
		visit(t.id)
	}
	return out
}
