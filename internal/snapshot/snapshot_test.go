package snapshot

import (
	"bytes"
	"testing"

	"typelib/internal/metadata"
	"typelib/internal/types"
)

func sampleRegistry(t *testing.T) *types.Registry {
	t.Helper()
	r := types.NewRegistry()
	if _, err := r.CreateNumeric("/int32", 4, types.NumericSInt); err != nil {
		t.Fatalf("int32: %v", err)
	}
	if _, err := r.CreateType("/Handle", types.TypeOptions{Size: 8, Opaque: true}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := r.CreateType("/nil", types.TypeOptions{Null: true}); err != nil {
		t.Fatalf("nil: %v", err)
	}
	if _, err := r.RegisterContainerModel("/std/vector", types.ContainerModelOptions{Size: 24, RandomAccess: true}); err != nil {
		t.Fatalf("vector: %v", err)
	}
	if _, err := r.CreateEnum("/Color", 4, func(b *types.EnumBuilder) error {
		if err := b.Add("RED", 0); err != nil {
			return err
		}
		return b.Add("GREEN", 1)
	}); err != nil {
		t.Fatalf("enum: %v", err)
	}
	node, err := r.CreateCompound("/Node", func(b *types.CompoundBuilder) error {
		if _, err := b.AddNamed("color", "/Color", types.WithFieldMetadata(metadata.FromMap(map[string][]string{"doc": {"paint"}}))); err != nil {
			return err
		}
		if _, err := b.AddNamed("handles", "/Handle[2]", types.WithSkip(4)); err != nil {
			return err
		}
		_, err := b.AddNamed("children", "/std/vector</Node>", types.AtOffset(32))
		return err
	}, types.WithCompoundMetadata(metadata.FromMap(map[string][]string{"source": {"node.h"}})))
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	if err := r.CreateAlias("/Tree", node); err != nil {
		t.Fatalf("alias: %v", err)
	}
	return r
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := sampleRegistry(t)
	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.SameTypes(restored) {
		t.Fatalf("restored registry differs")
	}
	node, err := restored.Get("/Tree")
	if err != nil {
		t.Fatalf("alias lost: %v", err)
	}
	if !node.Metadata().Has("source") {
		t.Fatalf("type metadata lost")
	}
	f, _ := node.Field("color")
	if got := f.Metadata().Get("doc"); len(got) != 1 || got[0] != "paint" {
		t.Fatalf("field metadata lost: %v", got)
	}
	if m, ok := restored.ContainerModel("/std/vector"); !ok || m.Size != 24 || !m.RandomAccess {
		t.Fatalf("container model lost")
	}
}

func TestRestoreRejectsOtherSchema(t *testing.T) {
	s := Capture(sampleRegistry(t))
	s.Schema = SchemaVersion + 1
	if _, err := s.Restore(); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestRestoreMissingDependency(t *testing.T) {
	s := Capture(sampleRegistry(t))
	kept := s.Types[:0]
	for _, d := range s.Types {
		if d.Name != "/int32" && d.Name != "/Color" {
			kept = append(kept, d)
		}
	}
	s.Types = kept
	if _, err := s.Restore(); err == nil {
		t.Fatalf("expected missing type error")
	}
}

func TestDiskCache(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := KeyFor([]byte("input"), "little", "8")
	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	r := sampleRegistry(t)
	if err := c.Put(key, r); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if !r.SameTypes(got) {
		t.Fatalf("cached registry differs")
	}

	if KeyFor([]byte("input"), "big", "8") == key {
		t.Fatalf("settings must change the key")
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatalf("dropped snapshot still present")
	}
}

func TestEncodeDecodeStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleRegistry(t)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Len() == 0 {
		t.Fatalf("empty registry")
	}
}
