package types

import (
	"errors"
	"slices"
	"testing"

	"typelib/internal/metadata"
	"typelib/internal/typeerr"
)

func TestCopyToFreshRegistry(t *testing.T) {
	r := newBaseRegistry(t)
	simple := createSimple(t, r, metadata.FromMap(map[string][]string{"doc": {"simple"}}))
	if _, err := r.Build("/Simple[3]"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := r.CreateAlias("/int", mustGet(t, r, "/int32")); err != nil {
		t.Fatalf("alias: %v", err)
	}

	dst, err := r.Copy()
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !r.SameTypes(dst) || !dst.SameTypes(r) {
		t.Fatalf("copy must hold the same types")
	}

	copied := mustGet(t, dst, "/Simple")
	if copied == simple || copied.Registry() != dst {
		t.Fatalf("copy must own new descriptors")
	}
	copied.Metadata().Add("doc", "changed")
	if got := simple.Metadata().Get("doc"); len(got) != 1 {
		t.Fatalf("metadata leaked into the original: %v", got)
	}
}

func TestCopyToCyclicTypes(t *testing.T) {
	r := newBaseRegistry(t)
	node, err := r.CreateCompound("/Node", func(b *CompoundBuilder) error {
		if _, err := b.AddNamed("value", "/int32"); err != nil {
			return err
		}
		_, err := b.AddNamed("children", "/std/vector</Node>")
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	dst := NewRegistry()
	copied, err := node.CopyTo(dst)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !ModelEqual(node, copied) {
		t.Fatalf("copied /Node differs")
	}
	if !dst.HasContainerModel("/std/vector") {
		t.Fatalf("container model must come along")
	}
	if dst.Len() != 3 {
		t.Fatalf("expected /int32, /Node and its vector, got %d types", dst.Len())
	}
}

func TestCopyToConflictLeavesNoTrace(t *testing.T) {
	r := newBaseRegistry(t)
	simple := createSimple(t, r, nil)

	dst := NewRegistry()
	if _, err := dst.CreateNumeric("/float64", 4, NumericFloat); err != nil {
		t.Fatalf("float64: %v", err)
	}
	_, err := simple.CopyTo(dst)
	if !isKind(err, typeerr.KindMismatchingTypeSize) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if dst.Has("/int32") || dst.Has("/Simple") {
		t.Fatalf("failed copy left types behind")
	}
}

func TestMinimal(t *testing.T) {
	r := newBaseRegistry(t)
	simple := createSimple(t, r, nil)
	if err := r.CreateAlias("/Alias", simple); err != nil {
		t.Fatalf("alias: %v", err)
	}
	if err := r.CreateAlias("/Letter", mustGet(t, r, "/char")); err != nil {
		t.Fatalf("alias: %v", err)
	}

	sub, err := r.Minimal(simple, true)
	if err != nil {
		t.Fatalf("minimal: %v", err)
	}
	if sub.Len() != 3 || sub.Has("/char") {
		t.Fatalf("minimal must hold /Simple and its fields only, got %d types", sub.Len())
	}
	if !sub.Has("/Alias") || sub.Has("/Letter") {
		t.Fatalf("unexpected aliases %v", sub.Aliases())
	}

	bare, err := r.Minimal(simple, false)
	if err != nil {
		t.Fatalf("minimal: %v", err)
	}
	if len(bare.Aliases()) != 0 {
		t.Fatalf("aliases were not requested")
	}
}

func TestMergeUnionsMetadata(t *testing.T) {
	left := newBaseRegistry(t)
	right := newBaseRegistry(t)
	createSimple(t, left, metadata.FromMap(map[string][]string{"doc": {"left"}}))
	rs := createSimple(t, right, metadata.FromMap(map[string][]string{"doc": {"right"}, "source": {"b.h"}}))
	f, _ := rs.Field("a")
	f.Metadata().Add("unit", "m")
	if _, err := right.Build("/Simple[2]"); err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := left.Merge(right); err != nil {
		t.Fatalf("merge: %v", err)
	}
	simple := mustGet(t, left, "/Simple")
	doc := simple.Metadata().Get("doc")
	slices.Sort(doc)
	if !slices.Equal(doc, []string{"left", "right"}) {
		t.Fatalf("expected union of doc values, got %v", doc)
	}
	if !simple.Metadata().Has("source") {
		t.Fatalf("missing key from merged registry")
	}
	a, _ := simple.Field("a")
	if got := a.Metadata().Get("unit"); len(got) != 1 || got[0] != "m" {
		t.Fatalf("field metadata not merged: %v", got)
	}
	if !left.Has("/Simple[2]") {
		t.Fatalf("missing types must be copied")
	}
}

func TestMergeFieldOrderMismatch(t *testing.T) {
	left := newBaseRegistry(t)
	right := newBaseRegistry(t)
	createSimple(t, left, nil)
	_, err := right.CreateCompound("/Simple", func(b *CompoundBuilder) error {
		if _, err := b.AddNamed("b", "/float64"); err != nil {
			return err
		}
		_, err := b.AddNamed("a", "/int32")
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = left.Merge(right)
	if !errors.Is(err, typeerr.ErrStructural) || !isKind(err, typeerr.KindMismatchingFieldName) {
		t.Fatalf("expected field name mismatch, got %v", err)
	}
}

func TestValidateMergeKinds(t *testing.T) {
	a := newBaseRegistry(t)
	b := NewRegistry()
	if _, err := b.CreateNumeric("/int32", 4, NumericUInt); err != nil {
		t.Fatalf("uint: %v", err)
	}
	if _, err := b.CreateCharacter("/float64", 8); err != nil {
		t.Fatalf("char: %v", err)
	}
	if _, err := b.CreateType("/char", TypeOptions{Size: 1, Opaque: true}); err != nil {
		t.Fatalf("opaque: %v", err)
	}

	cases := []struct {
		name string
		kind typeerr.Kind
	}{
		{"/int32", typeerr.KindMismatchingNumericKind},
		{"/float64", typeerr.KindMismatchingTypeModel},
	}
	for _, tc := range cases {
		err := ValidateMerge(mustGet(t, a, tc.name), mustGet(t, b, tc.name))
		if !isKind(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
	if err := ValidateMerge(mustGet(t, a, "/char"), mustGet(t, b, "/char")); !isKind(err, typeerr.KindMismatchingTypeModel) {
		t.Fatalf("character vs plain type: got %v", err)
	}
}

func TestMergeKeepsEarlierTypesOnFailure(t *testing.T) {
	left := newBaseRegistry(t)
	right := newBaseRegistry(t)
	if _, err := right.CreateNumeric("/uint8", 1, NumericUInt); err != nil {
		t.Fatalf("uint8: %v", err)
	}
	if _, err := left.CreateNumeric("/wide", 8, NumericSInt); err != nil {
		t.Fatalf("wide: %v", err)
	}
	if _, err := right.CreateNumeric("/wide", 4, NumericSInt); err != nil {
		t.Fatalf("wide: %v", err)
	}
	if err := left.Merge(right); !isKind(err, typeerr.KindMismatchingTypeSize) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if !left.Has("/uint8") {
		t.Fatalf("types merged before the failure must stay")
	}
}

func TestCastsTo(t *testing.T) {
	r := newBaseRegistry(t)
	simple := createSimple(t, r, nil)
	i32 := mustGet(t, r, "/int32")
	arr, err := r.Build("/int32[4]")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !arr.CastsTo(i32) {
		t.Fatalf("array of T casts to T")
	}
	if !simple.CastsTo(i32) {
		t.Fatalf("compound whose first field is T casts to T")
	}
	if simple.CastsTo(mustGet(t, r, "/char")) {
		t.Fatalf("unrelated types do not cast")
	}
	if !simple.CastsTo(simple) {
		t.Fatalf("a type casts to itself")
	}

	nested, err := r.Build("/int32[2][3]")
	if err != nil {
		t.Fatalf("build nested: %v", err)
	}
	if !nested.CastsTo(nested.Element()) || !nested.CastsTo(i32) {
		t.Fatalf("nested arrays cast to their element and, transitively, to the innermost type")
	}
	if nested.CastsTo(arr) {
		t.Fatalf("/int32[2][3] does not cast to /int32[4]")
	}
}

func TestSameTypesDetectsDifferences(t *testing.T) {
	a := newBaseRegistry(t)
	b := newBaseRegistry(t)
	if !a.SameTypes(b) {
		t.Fatalf("identical registries")
	}
	if _, err := b.CreateCharacter("/wchar", 2); err != nil {
		t.Fatalf("wchar: %v", err)
	}
	if a.SameTypes(b) {
		t.Fatalf("extra type must be detected")
	}
	if _, err := a.CreateCharacter("/wchar", 4); err != nil {
		t.Fatalf("wchar: %v", err)
	}
	if a.SameTypes(b) {
		t.Fatalf("size difference must be detected")
	}
}

func TestSameTypesComparesRandomAccess(t *testing.T) {
	a := newBaseRegistry(t)
	b := newBaseRegistry(t)
	if _, err := a.CreateContainer("/std/vector", mustGet(t, a, "/int32"), WithRandomAccess(true)); err != nil {
		t.Fatalf("container a: %v", err)
	}
	if _, err := b.CreateContainer("/std/vector", mustGet(t, b, "/int32"), WithRandomAccess(false)); err != nil {
		t.Fatalf("container b: %v", err)
	}
	if a.SameTypes(b) || b.SameTypes(a) {
		t.Fatalf("containers differing in random access must not compare equal")
	}
}
