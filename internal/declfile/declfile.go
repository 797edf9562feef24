// Package declfile reads type declarations written in TOML and registers
// them through the construction API.
//
//	namespace = "/geo"
//
//	[[numeric]]
//	name = "float64"
//	size = 8
//	category = "float"
//
//	[[compound]]
//	name = "Point"
//	  [[compound.field]]
//	  name = "x"
//	  type = "float64"
//
// Names without a leading separator are taken relative to namespace.
package declfile

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"typelib/internal/metadata"
	"typelib/internal/typeerr"
	"typelib/internal/typename"
	"typelib/internal/types"
)

// File is a decoded declaration file.
type File struct {
	Namespace  string          `toml:"namespace"`
	Containers []ContainerDecl `toml:"container"`
	Types      []TypeDecl      `toml:"type"`
	Numerics   []NumericDecl   `toml:"numeric"`
	Characters []CharacterDecl `toml:"character"`
	Enums      []EnumDecl      `toml:"enum"`
	Compounds  []CompoundDecl  `toml:"compound"`
	Aliases    []AliasDecl     `toml:"alias"`

	path string
}

type ContainerDecl struct {
	Name         string `toml:"name"`
	Size         uint64 `toml:"size"`
	RandomAccess bool   `toml:"random_access"`
}

type TypeDecl struct {
	Name     string              `toml:"name"`
	Size     uint64              `toml:"size"`
	Opaque   bool                `toml:"opaque"`
	Null     bool                `toml:"null"`
	Metadata map[string][]string `toml:"metadata"`
}

type NumericDecl struct {
	Name     string              `toml:"name"`
	Size     uint64              `toml:"size"`
	Category string              `toml:"category"`
	Metadata map[string][]string `toml:"metadata"`
}

type CharacterDecl struct {
	Name     string              `toml:"name"`
	Size     uint64              `toml:"size"`
	Metadata map[string][]string `toml:"metadata"`
}

type EnumDecl struct {
	Name     string              `toml:"name"`
	Size     uint64              `toml:"size"`
	Symbols  []SymbolDecl        `toml:"symbol"`
	Metadata map[string][]string `toml:"metadata"`
}

type SymbolDecl struct {
	Name  string `toml:"name"`
	Value int64  `toml:"value"`
}

type CompoundDecl struct {
	Name     string              `toml:"name"`
	Size     *uint64             `toml:"size"`
	Fields   []FieldDecl         `toml:"field"`
	Metadata map[string][]string `toml:"metadata"`
}

type FieldDecl struct {
	Name     string              `toml:"name"`
	Type     string              `toml:"type"`
	Offset   *uint64             `toml:"offset"`
	Skip     uint64              `toml:"skip"`
	Metadata map[string][]string `toml:"metadata"`
}

type AliasDecl struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
}

// ParseFile decodes the declaration file at path.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Parse decodes declarations from data. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if f.Namespace != "" && !typename.IsAbsolute(f.Namespace) {
		return nil, fmt.Errorf("namespace %q must start with %q", f.Namespace, typename.Separator)
	}
	return &f, nil
}

// Load parses path into a fresh registry.
func Load(path string) (*types.Registry, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	r := types.NewRegistry()
	if err := f.Apply(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Apply registers the declarations of f into r. Compounds may refer to each
// other in any order.
func (f *File) Apply(r *types.Registry) error {
	if err := f.apply(r); err != nil {
		if f.path != "" {
			return fmt.Errorf("%s: %w", f.path, err)
		}
		return err
	}
	return nil
}

func (f *File) apply(r *types.Registry) error {
	for _, c := range f.Containers {
		name := f.qualify(c.Name)
		if m, ok := r.ContainerModel(name); ok {
			if m.Size != c.Size || m.RandomAccess != c.RandomAccess {
				return typeerr.Mismatch(typeerr.KindMismatchingContainerModel, name, name, "redeclared with other settings")
			}
			continue
		}
		if _, err := r.RegisterContainerModel(name, types.ContainerModelOptions{Size: c.Size, RandomAccess: c.RandomAccess}); err != nil {
			return err
		}
	}

	for _, d := range f.Types {
		t, err := r.CreateType(f.qualify(d.Name), types.TypeOptions{Size: d.Size, Opaque: d.Opaque, Null: d.Null})
		if err != nil {
			return err
		}
		addMetadata(t.Metadata(), d.Metadata)
	}
	for _, d := range f.Numerics {
		cat, err := types.ParseNumericCategory(d.Category)
		if err != nil {
			return fmt.Errorf("numeric %s: %w", d.Name, err)
		}
		t, err := r.CreateNumeric(f.qualify(d.Name), d.Size, cat)
		if err != nil {
			return err
		}
		addMetadata(t.Metadata(), d.Metadata)
	}
	for _, d := range f.Characters {
		t, err := r.CreateCharacter(f.qualify(d.Name), d.Size)
		if err != nil {
			return err
		}
		addMetadata(t.Metadata(), d.Metadata)
	}
	for _, d := range f.Enums {
		t, err := r.CreateEnum(f.qualify(d.Name), d.Size, func(b *types.EnumBuilder) error {
			for _, s := range d.Symbols {
				if err := b.Add(s.Name, s.Value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		addMetadata(t.Metadata(), d.Metadata)
	}

	c := &compounds{file: f, reg: r, pending: make(map[string]*CompoundDecl, len(f.Compounds))}
	for i := range f.Compounds {
		c.pending[typename.Normalize(f.qualify(f.Compounds[i].Name))] = &f.Compounds[i]
	}
	for i := range f.Compounds {
		if err := c.declare(typename.Normalize(f.qualify(f.Compounds[i].Name))); err != nil {
			return err
		}
	}

	for _, a := range f.Aliases {
		target, err := r.Build(f.qualify(a.Target))
		if err != nil {
			return err
		}
		if err := r.CreateAlias(f.qualify(a.Name), target); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) qualify(name string) string {
	name = strings.TrimSpace(name)
	if f.Namespace == "" || typename.IsAbsolute(name) {
		return name
	}
	return typename.Join(f.Namespace, name)
}

func addMetadata(md *metadata.MetaData, values map[string][]string) {
	md.Merge(metadata.FromMap(values))
}

// compounds registers compound declarations on demand, so that a field may
// name a compound declared further down the file.
type compounds struct {
	file    *File
	reg     *types.Registry
	pending map[string]*CompoundDecl
}

func (c *compounds) declare(name string) error {
	d, ok := c.pending[name]
	if !ok {
		return nil
	}
	delete(c.pending, name)

	var opts []types.CompoundOption
	if d.Size != nil {
		opts = append(opts, types.WithCompoundSize(*d.Size))
	}
	if len(d.Metadata) > 0 {
		opts = append(opts, types.WithCompoundMetadata(metadata.FromMap(d.Metadata)))
	}
	_, err := c.reg.CreateCompound(name, func(b *types.CompoundBuilder) error {
		for _, fd := range d.Fields {
			typeName := c.file.qualify(fd.Type)
			for _, ref := range references(typeName) {
				if err := c.declare(ref); err != nil {
					return err
				}
			}
			fopts := []types.FieldOption{types.WithSkip(fd.Skip)}
			if fd.Offset != nil {
				fopts = append(fopts, types.AtOffset(*fd.Offset))
			}
			if len(fd.Metadata) > 0 {
				fopts = append(fopts, types.WithFieldMetadata(metadata.FromMap(fd.Metadata)))
			}
			if _, err := b.AddNamed(fd.Name, typeName, fopts...); err != nil {
				return fmt.Errorf("compound %s, field %s: %w", name, fd.Name, err)
			}
		}
		return nil
	}, opts...)
	return err
}

// references lists the plain type names a composite name is built from:
// array elements and template arguments, recursively, plus the name
// itself when it is neither.
func references(name string) []string {
	name = typename.Normalize(name)
	if elem, _, ok := typename.SplitArray(name); ok {
		return references(elem)
	}
	if base, args := typename.ParseTemplate(name); args != nil {
		out := []string{base}
		for _, a := range args {
			out = append(out, references(a)...)
		}
		return slices.Compact(out)
	}
	return []string{name}
}
