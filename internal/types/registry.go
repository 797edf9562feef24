package types

import (
	"fmt"

	"fortio.org/safecast"

	"typelib/internal/metadata"
	"typelib/internal/trace"
	"typelib/internal/typeerr"
	"typelib/internal/typename"
)

// Registry owns a namespaced collection of descriptors keyed by canonical
// name, plus aliases and container models. It performs no locking: build it
// from one goroutine, then share it read-only.
type Registry struct {
	types     []*Type // index 0 is the NoTypeID sentinel
	byName    map[string]TypeID
	aliases   map[string]TypeID
	aliasSeq  []string
	models    map[string]*ContainerModel
	modelSeq  []string
	compounds []compoundInfo
	enums     []enumInfo

	// generation is bumped whenever a dependency edge is added; memoized
	// closures older than it are recomputed.
	generation uint64

	tracer trace.Tracer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:     []*Type{nil},
		byName:    make(map[string]TypeID, 64),
		aliases:   make(map[string]TypeID),
		models:    make(map[string]*ContainerModel),
		compounds: []compoundInfo{{}},
		enums:     []enumInfo{{}},
		tracer:    trace.Nop,
	}
}

// SetTracer attaches a tracer; nil restores the no-op tracer.
func (r *Registry) SetTracer(t trace.Tracer) {
	if t == nil {
		t = trace.Nop
	}
	r.tracer = t
}

// Tracer returns the attached tracer.
func (r *Registry) Tracer() trace.Tracer {
	return r.tracer
}

// Len returns the number of registered types, aliases excluded.
func (r *Registry) Len() int {
	return len(r.types) - 1
}

// Types returns all descriptors in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, r.Len())
	out = append(out, r.types[1:]...)
	return out
}

// Lookup returns the descriptor stored under id.
func (r *Registry) Lookup(id TypeID) (*Type, bool) {
	t := r.byID(id)
	return t, t != nil
}

func (r *Registry) byID(id TypeID) *Type {
	if id == NoTypeID || int(id) >= len(r.types) {
		return nil
	}
	return r.types[id]
}

func (r *Registry) resolve(ids []TypeID) []*Type {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Type, 0, len(ids))
	for _, id := range ids {
		if t := r.byID(id); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the type or alias target registered under name.
func (r *Registry) Get(name string) (*Type, error) {
	if t, ok := r.FindByName(name); ok {
		return t, nil
	}
	return nil, typeerr.NotFound("type", typename.Normalize(name))
}

// FindByName is Get without the error: the boolean is false when name is
// unknown.
func (r *Registry) FindByName(name string) (*Type, bool) {
	name = typename.Normalize(name)
	if id, ok := r.byName[name]; ok {
		return r.types[id], true
	}
	if id, ok := r.aliases[name]; ok {
		return r.types[id], true
	}
	return nil, false
}

// Has reports whether name is a registered type or alias.
func (r *Registry) Has(name string) bool {
	_, ok := r.FindByName(name)
	return ok
}

// lookupType ignores aliases.
func (r *Registry) lookupType(name string) (*Type, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.types[id], true
}

// Owns reports whether t was created by this registry.
func (r *Registry) Owns(t *Type) bool {
	return t != nil && t.registry == r && r.byID(t.id) == t
}

func (r *Registry) checkOwned(t *Type) error {
	if t == nil {
		return typeerr.New(typeerr.ClassOwnership, typeerr.KindForeignType).Detail("nil type").Build()
	}
	if !r.Owns(t) {
		return typeerr.ForeignType(t.name, "the target registry")
	}
	return nil
}

// checkName normalizes and validates a name for registration.
func (r *Registry) checkName(name string) (string, error) {
	name = typename.Normalize(name)
	if err := typename.Validate(name, true); err != nil {
		return "", err
	}
	if _, ok := r.byName[name]; ok {
		return "", typeerr.DuplicateTypeName(name)
	}
	if _, ok := r.aliases[name]; ok {
		return "", typeerr.DuplicateTypeName(name)
	}
	return name, nil
}

// register appends t to the arena under its (already checked) name.
func (r *Registry) register(t *Type) *Type {
	id, err := safecast.Conv[uint32](len(r.types))
	if err != nil {
		panic(fmt.Errorf("type arena overflow: %w", err))
	}
	t.registry = r
	t.id = TypeID(id)
	if t.meta == nil {
		t.meta = metadata.New()
	}
	r.types = append(r.types, t)
	r.byName[t.name] = t.id
	return t
}

// mark captures the arena extents so a failed multi-step operation can be
// undone with rollback.
type mark struct {
	types, compounds, enums, aliases, models int
}

func (r *Registry) mark() mark {
	return mark{
		types:     len(r.types),
		compounds: len(r.compounds),
		enums:     len(r.enums),
		aliases:   len(r.aliasSeq),
		models:    len(r.modelSeq),
	}
}

// rollback drops everything registered after m. Types registered before m
// never depend on later ones, so the arena stays consistent.
func (r *Registry) rollback(m mark) {
	for _, t := range r.types[m.types:] {
		delete(r.byName, t.name)
	}
	r.types = r.types[:m.types]
	r.compounds = r.compounds[:m.compounds]
	r.enums = r.enums[:m.enums]
	for _, name := range r.aliasSeq[m.aliases:] {
		delete(r.aliases, name)
	}
	r.aliasSeq = r.aliasSeq[:m.aliases]
	for _, name := range r.modelSeq[m.models:] {
		delete(r.models, name)
	}
	r.modelSeq = r.modelSeq[:m.models]
	r.generation++
}

// CreateAlias registers name as another name for target.
func (r *Registry) CreateAlias(name string, target *Type) error {
	if err := r.checkOwned(target); err != nil {
		return err
	}
	name, err := r.checkName(name)
	if err != nil {
		return err
	}
	r.aliases[name] = target.id
	r.aliasSeq = append(r.aliasSeq, name)
	return nil
}

// Aliases returns alias names in creation order.
func (r *Registry) Aliases() []string {
	return append([]string(nil), r.aliasSeq...)
}

// AliasesOf returns the aliases that resolve to t.
func (r *Registry) AliasesOf(t *Type) []string {
	var out []string
	for _, name := range r.aliasSeq {
		if r.aliases[name] == t.id {
			out = append(out, name)
		}
	}
	return out
}
