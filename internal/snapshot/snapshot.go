// Package snapshot stores registries as msgpack documents and restores
// them through the construction API, and keeps restored snapshots in an
// on-disk cache.
package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"typelib/internal/metadata"
	"typelib/internal/typeerr"
	"typelib/internal/types"
)

// SchemaVersion is bumped whenever the Snapshot layout changes.
const SchemaVersion uint16 = 1

// Snapshot is the serialized form of a registry.
type Snapshot struct {
	Schema  uint16              `json:"schema" msgpack:"schema"`
	Models  []Model             `json:"models,omitempty" msgpack:"models,omitempty"`
	Types   []types.Description `json:"types" msgpack:"types"`
	Aliases []Alias             `json:"aliases,omitempty" msgpack:"aliases,omitempty"`
}

// Model is a container model declaration.
type Model struct {
	Name         string `json:"name" msgpack:"name"`
	Size         uint64 `json:"size" msgpack:"size"`
	RandomAccess bool   `json:"random_access,omitempty" msgpack:"random_access,omitempty"`
}

// Alias maps an alias name to its target type name.
type Alias struct {
	Name   string `json:"name" msgpack:"name"`
	Target string `json:"target" msgpack:"target"`
}

// Capture describes every type, alias and container model of r.
func Capture(r *types.Registry) *Snapshot {
	s := &Snapshot{
		Schema: SchemaVersion,
		Types:  r.DescribeAll(types.DescribeOptions{LayoutInfo: true}),
	}
	for _, m := range r.ContainerModels() {
		s.Models = append(s.Models, Model{Name: m.Name, Size: m.Size, RandomAccess: m.RandomAccess})
	}
	for _, name := range r.Aliases() {
		target, _ := r.AliasTarget(name)
		s.Aliases = append(s.Aliases, Alias{Name: name, Target: target.Name()})
	}
	return s
}

// Encode writes the snapshot of r to w.
func Encode(w io.Writer, r *types.Registry) error {
	enc := msgpack.NewEncoder(w)
	enc.SetOmitEmpty(true)
	return enc.Encode(Capture(r))
}

// Marshal returns the encoded snapshot of r.
func Marshal(r *types.Registry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a snapshot from rd and restores it.
func Decode(rd io.Reader) (*types.Registry, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(rd).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s.Restore()
}

// Unmarshal restores the snapshot encoded in data.
func Unmarshal(data []byte) (*types.Registry, error) {
	return Decode(bytes.NewReader(data))
}

// Restore rebuilds a registry from s.
func (s *Snapshot) Restore() (*types.Registry, error) {
	if s.Schema != SchemaVersion {
		return nil, fmt.Errorf("snapshot schema %d, expected %d", s.Schema, SchemaVersion)
	}
	r := types.NewRegistry()
	for _, m := range s.Models {
		if _, err := r.RegisterContainerModel(m.Name, types.ContainerModelOptions{Size: m.Size, RandomAccess: m.RandomAccess}); err != nil {
			return nil, err
		}
	}

	rs := &restorer{reg: r, byName: make(map[string]*types.Description, len(s.Types))}
	for i := range s.Types {
		rs.byName[s.Types[i].Name] = &s.Types[i]
	}
	// types may refer to later ones through containers, so each type pulls
	// in what it needs by name
	for i := range s.Types {
		if _, err := rs.restore(s.Types[i].Name); err != nil {
			return nil, err
		}
	}

	for _, a := range s.Aliases {
		target, err := r.Get(a.Target)
		if err != nil {
			return nil, err
		}
		if err := r.CreateAlias(a.Name, target); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type restorer struct {
	reg    *types.Registry
	byName map[string]*types.Description
}

func (rs *restorer) restore(name string) (*types.Type, error) {
	if t, ok := rs.reg.FindByName(name); ok {
		return t, nil
	}
	d, ok := rs.byName[name]
	if !ok {
		return nil, typeerr.NotFound("snapshot type", name)
	}
	kind, err := types.ParseKind(d.Class)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", name, err)
	}
	size := uint64(0)
	if d.Size != nil {
		size = *d.Size
	}

	var t *types.Type
	switch kind {
	case types.KindType:
		t, err = rs.reg.CreateType(name, types.TypeOptions{Size: size, Opaque: d.Opaque, Null: d.Null})
	case types.KindNumeric:
		var cat types.NumericCategory
		if cat, err = types.ParseNumericCategory(d.Category); err == nil {
			t, err = rs.reg.CreateNumeric(name, size, cat)
		}
	case types.KindCharacter:
		t, err = rs.reg.CreateCharacter(name, size)
	case types.KindEnum:
		t, err = rs.reg.CreateEnum(name, size, func(b *types.EnumBuilder) error {
			for _, sym := range d.Symbols {
				if err := b.Add(sym.Name, sym.Value); err != nil {
					return err
				}
			}
			return nil
		})
	case types.KindArray:
		t, err = rs.restoreArray(d)
	case types.KindContainer:
		t, err = rs.restoreContainer(d, size)
	case types.KindCompound:
		t, err = rs.restoreCompound(d)
	default:
		err = fmt.Errorf("restore %s: unsupported class %s", name, d.Class)
	}
	if err != nil {
		return nil, err
	}
	if d.Size != nil && t.Size() != size {
		return nil, typeerr.Mismatch(typeerr.KindMismatchingTypeSize, name, name,
			"restored size %d, recorded %d", t.Size(), size)
	}
	t.Metadata().Merge(metadata.FromMap(d.Metadata))
	return t, nil
}

func (rs *restorer) element(d *types.Description) (*types.Type, error) {
	if d.Element == nil {
		return nil, typeerr.New(typeerr.ClassStructural, typeerr.KindMismatchingDerefType).
			Type(d.Name).
			Detail("missing element type").
			Build()
	}
	return rs.restore(d.Element.Name)
}

func (rs *restorer) restoreArray(d *types.Description) (*types.Type, error) {
	elem, err := rs.element(d)
	if err != nil {
		return nil, err
	}
	return rs.reg.CreateArray(elem, d.Length)
}

func (rs *restorer) restoreContainer(d *types.Description, size uint64) (*types.Type, error) {
	elem, err := rs.element(d)
	if err != nil {
		return nil, err
	}
	// the element may have created this container while restoring itself
	if t, ok := rs.reg.FindByName(d.Name); ok {
		return t, nil
	}
	return rs.reg.CreateContainer(d.Model, elem,
		types.WithContainerSize(size),
		types.WithRandomAccess(d.RandomAccess))
}

func (rs *restorer) restoreCompound(d *types.Description) (*types.Type, error) {
	var opts []types.CompoundOption
	if d.Size != nil {
		opts = append(opts, types.WithCompoundSize(*d.Size))
	}
	return rs.reg.CreateCompound(d.Name, func(b *types.CompoundBuilder) error {
		for _, f := range d.Fields {
			ft, err := rs.restore(f.Type.Name)
			if err != nil {
				return err
			}
			opts := []types.FieldOption{
				types.WithSkip(f.Skip),
				types.WithFieldMetadata(metadata.FromMap(f.Metadata)),
			}
			if f.Offset != nil {
				opts = append(opts, types.AtOffset(*f.Offset))
			}
			if _, err := b.Add(f.Name, ft, opts...); err != nil {
				return err
			}
		}
		return nil
	}, opts...)
}
