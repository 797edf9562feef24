package types

import (
	"encoding/json"
	"testing"

	"typelib/internal/metadata"
)

func TestDescribeCompound(t *testing.T) {
	r := newBaseRegistry(t)
	simple := createSimple(t, r, metadata.FromMap(map[string][]string{"doc": {"two fields"}}))

	d := simple.Describe(DescribeOptions{LayoutInfo: true})
	if d.Class != "compound" || d.Size == nil || *d.Size != 12 {
		t.Fatalf("unexpected description %+v", d)
	}
	if len(d.Fields) != 2 || d.Fields[1].Name != "b" || *d.Fields[1].Offset != 4 {
		t.Fatalf("unexpected fields %+v", d.Fields)
	}
	if d.Fields[1].Type.Name != "/float64" || d.Fields[1].Type.Class != "" {
		t.Fatalf("non-recursive descriptions name field types only, got %+v", d.Fields[1].Type)
	}
	if got := d.Metadata["doc"]; len(got) != 1 || got[0] != "two fields" {
		t.Fatalf("metadata missing: %v", d.Metadata)
	}

	plain := simple.Describe(DescribeOptions{})
	if plain.Size != nil || plain.Fields[0].Offset != nil {
		t.Fatalf("layout info was not requested")
	}
}

func TestDescribeRecursiveStopsAtCycles(t *testing.T) {
	r := newBaseRegistry(t)
	node, err := r.CreateCompound("/Node", func(b *CompoundBuilder) error {
		_, err := b.AddNamed("children", "/std/vector</Node>")
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d := node.Describe(DescribeOptions{Recursive: true})
	vec := d.Fields[0].Type
	if vec.Class != "container" || vec.Model != "/std/vector" || !vec.RandomAccess {
		t.Fatalf("container not expanded: %+v", vec)
	}
	if vec.Element == nil || vec.Element.Name != "/Node" || vec.Element.Fields != nil {
		t.Fatalf("cycle must end in a name reference: %+v", vec.Element)
	}
	if _, err := json.Marshal(d); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestDescribeAllOrder(t *testing.T) {
	r := newBaseRegistry(t)
	createSimple(t, r, nil)
	if _, err := r.Build("/Simple[2]"); err != nil {
		t.Fatalf("build: %v", err)
	}
	all := r.DescribeAll(DescribeOptions{})
	if len(all) != r.Len() {
		t.Fatalf("expected %d descriptions, got %d", r.Len(), len(all))
	}
	last := all[len(all)-1]
	if last.Name != "/Simple[2]" || last.Length != 2 || last.Element.Name != "/Simple" {
		t.Fatalf("arrays come after their element: %+v", last)
	}
}
