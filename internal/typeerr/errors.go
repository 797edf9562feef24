package typeerr

import (
	"fmt"
	"strings"
)

// Class groups error kinds the way callers usually react to them.
type Class string

const (
	ClassName       Class = "name"       // invalid, duplicate or unknown type names
	ClassStructural Class = "structural" // types that cannot be unified
	ClassOwnership  Class = "ownership"  // descriptors used with a foreign registry
	ClassLayout     Class = "layout"     // buffers that do not match a type
)

// Kind is the precise failure inside a class.
type Kind string

const (
	KindInvalidTypeName   Kind = "invalid_type_name"
	KindDuplicateTypeName Kind = "duplicate_type_name"
	KindNotFound          Kind = "not_found"

	KindMismatchingTypeName       Kind = "mismatching_type_name"
	KindMismatchingTypeModel      Kind = "mismatching_type_model"
	KindMismatchingTypeSize       Kind = "mismatching_type_size"
	KindMismatchingTypeOpaqueFlag Kind = "mismatching_type_opaque_flag"
	KindMismatchingTypeNullFlag   Kind = "mismatching_type_null_flag"
	KindMismatchingFieldCount     Kind = "mismatching_field_count"
	KindMismatchingFieldName      Kind = "mismatching_field_name"
	KindMismatchingFieldOffset    Kind = "mismatching_field_offset"
	KindMismatchingFieldType      Kind = "mismatching_field_type"
	KindMismatchingContainerModel Kind = "mismatching_container_model"
	KindMismatchingDerefType      Kind = "mismatching_deref_type"
	KindMismatchingEnumSymbols    Kind = "mismatching_enum_symbols"
	KindMismatchingNumericKind    Kind = "mismatching_numeric_category"
	KindDuplicateField            Kind = "duplicate_field"
	KindDuplicateSymbol           Kind = "duplicate_symbol"
	KindInvalidOffset             Kind = "invalid_offset"
	KindInvalidSize               Kind = "invalid_size"

	KindForeignType Kind = "foreign_type"

	KindBufferTooSmall   Kind = "buffer_too_small"
	KindBufferTooLarge   Kind = "buffer_too_large"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindOverflow         Kind = "overflow"
	KindInvalidContainer Kind = "invalid_container"
)

// Error is the structured error returned by the type engine.
type Error struct {
	Cause    error
	Class    Class
	Kind     Kind
	Type     string // type the operation ran on
	Other    string // counterpart type in merge/copy checks
	Field    string // compound field or enum symbol, if any
	Fragment string // offending part of a type name
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Class))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
		if e.Field != "" {
			b.WriteByte('.')
			b.WriteString(e.Field)
		}
	} else if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Other != "" && e.Other != e.Type {
		b.WriteString(" vs ")
		b.WriteString(e.Other)
	}
	if e.Fragment != "" {
		b.WriteString(" near ")
		b.WriteString(fmt.Sprintf("%q", e.Fragment))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on class alone when target carries no kind, and on class and
// kind otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Class != "" && t.Class != e.Class {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is checks by class.
var (
	ErrName       = &Error{Class: ClassName}
	ErrStructural = &Error{Class: ClassStructural}
	ErrOwnership  = &Error{Class: ClassOwnership}
	ErrLayout     = &Error{Class: ClassLayout}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(class Class, kind Kind) *Builder {
	return &Builder{err: Error{Class: class, Kind: kind}}
}

// Type sets the type the error is about
func (b *Builder) Type(name string) *Builder {
	b.err.Type = name
	return b
}

// Other sets the counterpart type
func (b *Builder) Other(name string) *Builder {
	b.err.Other = name
	return b
}

// Field sets the field or symbol name
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Fragment sets the offending name fragment
func (b *Builder) Fragment(s string) *Builder {
	b.err.Fragment = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	out := b.err
	return &out
}

// Convenience constructors for common error patterns

// InvalidTypeName reports a grammar violation inside name.
func InvalidTypeName(name, fragment, detail string) *Error {
	return &Error{
		Class:    ClassName,
		Kind:     KindInvalidTypeName,
		Type:     name,
		Fragment: fragment,
		Detail:   detail,
	}
}

// DuplicateTypeName reports a creation under an already registered name.
func DuplicateTypeName(name string) *Error {
	return &Error{
		Class:  ClassName,
		Kind:   KindDuplicateTypeName,
		Type:   name,
		Detail: "a type with this name is already registered",
	}
}

// NotFound reports a lookup of a name the registry does not know.
func NotFound(what, name string) *Error {
	return &Error{
		Class:  ClassName,
		Kind:   KindNotFound,
		Type:   name,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// Mismatch reports a structural difference between two same-named types.
func Mismatch(kind Kind, local, other string, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Class:  ClassStructural,
		Kind:   kind,
		Type:   local,
		Other:  other,
		Detail: detail,
	}
}

// ForeignType reports a descriptor owned by another registry.
func ForeignType(name, usedIn string) *Error {
	return &Error{
		Class:  ClassOwnership,
		Kind:   KindForeignType,
		Type:   name,
		Detail: fmt.Sprintf("type belongs to another registry than %s", usedIn),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(typeName string, index, length int) *Error {
	return &Error{
		Class:  ClassLayout,
		Kind:   KindOutOfBounds,
		Type:   typeName,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// BufferTooSmall reports a buffer that ends before the value does.
func BufferTooSmall(typeName string, need, have int) *Error {
	return &Error{
		Class:  ClassLayout,
		Kind:   KindBufferTooSmall,
		Type:   typeName,
		Detail: fmt.Sprintf("need %d bytes, buffer has %d", need, have),
	}
}

// BufferTooLarge reports trailing bytes after a value.
func BufferTooLarge(typeName string, need, have int) *Error {
	return &Error{
		Class:  ClassLayout,
		Kind:   KindBufferTooLarge,
		Type:   typeName,
		Detail: fmt.Sprintf("value spans %d bytes, buffer has %d", need, have),
	}
}

// Overflow reports size arithmetic that does not fit the host integer.
func Overflow(typeName string, cause error) *Error {
	return &Error{
		Class:  ClassLayout,
		Kind:   KindOverflow,
		Type:   typeName,
		Detail: "size computation overflows",
		Cause:  cause,
	}
}
