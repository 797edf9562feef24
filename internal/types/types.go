package types

import (
	"fmt"

	"typelib/internal/metadata"
)

// TypeID identifies a descriptor inside its registry arena.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the descriptor variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindType         // plain, opaque or null type
	KindNumeric
	KindCharacter
	KindEnum
	KindCompound
	KindArray
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindType:
		return "type"
	case KindNumeric:
		return "numeric"
	case KindCharacter:
		return "character"
	case KindEnum:
		return "enum"
	case KindCompound:
		return "compound"
	case KindArray:
		return "array"
	case KindContainer:
		return "container"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindType; k <= KindContainer; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown type class %q", s)
}

// NumericCategory tells signed integers, unsigned integers and floats apart.
type NumericCategory uint8

const (
	NumericSInt NumericCategory = iota
	NumericUInt
	NumericFloat
)

func (c NumericCategory) String() string {
	switch c {
	case NumericSInt:
		return "sint"
	case NumericUInt:
		return "uint"
	case NumericFloat:
		return "float"
	default:
		return fmt.Sprintf("NumericCategory(%d)", c)
	}
}

// ParseNumericCategory is the inverse of NumericCategory.String.
func ParseNumericCategory(s string) (NumericCategory, error) {
	switch s {
	case "sint":
		return NumericSInt, nil
	case "uint":
		return NumericUInt, nil
	case "float":
		return NumericFloat, nil
	default:
		return NumericSInt, fmt.Errorf("unknown numeric category %q (expected sint|uint|float)", s)
	}
}

// Type is a descriptor owned by exactly one Registry. Dependencies are held
// as arena indexes; handles to other descriptors are resolved through the
// owning registry.
type Type struct {
	registry *Registry
	id       TypeID
	name     string
	kind     Kind
	size     uint64
	opaque   bool
	null     bool
	meta     *metadata.MetaData
	deps     []TypeID

	category     NumericCategory // numeric
	elem         TypeID          // array, container
	length       uint64          // array
	model        string          // container
	randomAccess bool            // container
	payload      uint32          // slot in the compound or enum side table

	closure    []TypeID
	closureGen uint64
}

// ID returns the arena index of t.
func (t *Type) ID() TypeID { return t.id }

// Name returns the canonical absolute name.
func (t *Type) Name() string { return t.name }

// Kind returns the descriptor variant.
func (t *Type) Kind() Kind { return t.kind }

// Size returns the static size in bytes.
func (t *Type) Size() uint64 { return t.size }

// Opaque reports whether the type's content is not described.
func (t *Type) Opaque() bool { return t.opaque }

// Null reports whether this is a null (zero-size) type.
func (t *Type) Null() bool { return t.null }

// Registry returns the owning registry.
func (t *Type) Registry() *Registry { return t.registry }

// Metadata returns the type's metadata; it may be modified in place.
func (t *Type) Metadata() *metadata.MetaData { return t.meta }

func (t *Type) String() string { return t.name }

// Category returns the numeric category. Only meaningful for numerics.
func (t *Type) Category() NumericCategory { return t.category }

// Integer reports whether t is an integer numeric type.
func (t *Type) Integer() bool {
	return t.kind == KindNumeric && t.category != NumericFloat
}

// Unsigned reports whether t is an unsigned integer type.
func (t *Type) Unsigned() bool {
	return t.kind == KindNumeric && t.category == NumericUInt
}

// Indirect reports whether t is defined through a single element type.
func (t *Type) Indirect() bool {
	return t.kind == KindArray || t.kind == KindContainer
}

// Element returns the dereferenced type of arrays and containers.
func (t *Type) Element() *Type {
	if !t.Indirect() {
		return nil
	}
	return t.registry.byID(t.elem)
}

// Length returns the element count of arrays.
func (t *Type) Length() uint64 { return t.length }

// ContainerModel returns the model name of containers.
func (t *Type) ContainerModel() string { return t.model }

// RandomAccess reports whether container elements can be indexed directly.
func (t *Type) RandomAccess() bool { return t.randomAccess }

// DirectDependencies returns the types t refers to directly.
func (t *Type) DirectDependencies() []*Type {
	return t.registry.resolve(t.deps)
}

func (t *Type) addDependency(id TypeID) {
	for _, d := range t.deps {
		if d == id {
			return
		}
	}
	t.deps = append(t.deps, id)
	t.registry.generation++
}
