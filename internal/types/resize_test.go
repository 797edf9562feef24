package types

import "testing"

func TestResizePropagatesToArraysAndCompounds(t *testing.T) {
	r := newBaseRegistry(t)
	handle, err := r.CreateType("/Handle", TypeOptions{Size: 4, Opaque: true})
	if err != nil {
		t.Fatalf("opaque: %v", err)
	}
	arr, err := r.Build("/Handle[3]")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	c, err := r.CreateCompound("/Holder", func(b *CompoundBuilder) error {
		if _, err := b.Add("h", handle); err != nil {
			return err
		}
		if _, err := b.AddNamed("x", "/int32"); err != nil {
			return err
		}
		_, err := b.AddNamed("d", "/float64", AtOffset(16))
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	untouched := createSimple(t, r, nil)

	changed, err := r.Resize(map[*Type]uint64{handle: 8})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if handle.Size() != 8 || arr.Size() != 24 {
		t.Fatalf("expected handle 8 and array 24, got %d and %d", handle.Size(), arr.Size())
	}
	x, _ := c.Field("x")
	d, _ := c.Field("d")
	if x.Offset != 8 {
		t.Fatalf("x must move after the wider handle, got offset %d", x.Offset)
	}
	if d.Offset != 16 || c.Size() != 24 {
		t.Fatalf("d had room and must stay put: offset %d size %d", d.Offset, c.Size())
	}
	if x.Skip != 4 {
		t.Fatalf("x skip must shrink to the remaining gap, got %d", x.Skip)
	}
	if _, ok := changed[c]; !ok {
		t.Fatalf("moved fields must report the compound as changed")
	}
	if _, ok := changed[untouched]; ok {
		t.Fatalf("/Simple does not depend on the handle")
	}
}

func TestApplyResizeGrowsCompound(t *testing.T) {
	r := newBaseRegistry(t)
	handle, err := r.CreateType("/Handle", TypeOptions{Size: 4, Opaque: true})
	if err != nil {
		t.Fatalf("opaque: %v", err)
	}
	c, err := r.CreateCompound("/Tail", func(b *CompoundBuilder) error {
		if _, err := b.AddNamed("x", "/int32"); err != nil {
			return err
		}
		_, err := b.Add("h", handle)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	size, ok, err := c.ApplyResize(map[*Type]uint64{handle: 12})
	if err != nil || !ok || size != 16 {
		t.Fatalf("expected growth to 16, got %d %v %v", size, ok, err)
	}
	if _, ok, _ := c.ApplyResize(map[*Type]uint64{}); ok {
		t.Fatalf("no new sizes means no change")
	}
}
