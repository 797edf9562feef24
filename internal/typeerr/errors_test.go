package typeerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Class:    ClassStructural,
				Kind:     KindMismatchingFieldOffset,
				Type:     "/Simple",
				Other:    "/Other",
				Field:    "b",
				Fragment: "x",
				Detail:   "offset 4 vs 8",
			},
			contains: []string{"[structural]", "mismatching_field_offset", "/Simple.b", "vs /Other", `near "x"`, "offset 4 vs 8"},
		},
		{
			name:     "minimal error",
			err:      &Error{Class: ClassLayout, Kind: KindOutOfBounds},
			contains: []string{"[layout]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Class: ClassLayout,
				Kind:  KindOverflow,
				Cause: errors.New("underlying error"),
			},
			contains: []string{"caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_IsByClass(t *testing.T) {
	err := Mismatch(KindMismatchingTypeSize, "/a", "/a", "4 vs 8")
	if !errors.Is(err, ErrStructural) {
		t.Fatal("structural error should match ErrStructural")
	}
	if errors.Is(err, ErrName) {
		t.Fatal("structural error should not match ErrName")
	}
	wrapped := fmt.Errorf("merge: %w", err)
	if !errors.Is(wrapped, ErrStructural) {
		t.Fatal("wrapped error should still match its class")
	}
}

func TestError_IsByKind(t *testing.T) {
	err := NotFound("type", "/nope")
	if !errors.Is(err, &Error{Class: ClassName, Kind: KindNotFound}) {
		t.Fatal("expected class+kind match")
	}
	if errors.Is(err, &Error{Class: ClassName, Kind: KindDuplicateTypeName}) {
		t.Fatal("different kind must not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(ClassStructural, KindDuplicateField).
		Type("/S").
		Field("a").
		Cause(cause).
		Detail("field %q defined twice", "a").
		Build()

	if err.Class != ClassStructural || err.Kind != KindDuplicateField {
		t.Fatalf("class/kind = %v/%v", err.Class, err.Kind)
	}
	if err.Type != "/S" || err.Field != "a" {
		t.Fatalf("type/field = %q/%q", err.Type, err.Field)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through errors.Is")
	}
	if err.Detail != `field "a" defined twice` {
		t.Fatalf("detail = %q", err.Detail)
	}
}

func TestBuilder_BuildReturnsIndependentErrors(t *testing.T) {
	b := New(ClassName, KindNotFound).Type("/a")
	first := b.Build()
	b.Type("/b")
	if first.Type != "/a" {
		t.Fatalf("first error mutated by builder: %q", first.Type)
	}
}
