package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelDriver, ScopeDriver, true},
		{LevelDriver, ScopeRegistry, false},
		{LevelRegistry, ScopeRegistry, true},
		{LevelType, ScopeType, true},
		{LevelType, ScopeLayout, false},
		{LevelAll, ScopeLayout, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.level, tc.scope, tc.want, got)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "driver", "REGISTRY", "type", "all"} {
		if _, err := ParseLevel(s); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelRegistry, FormatText)

	root := Begin(tr, ScopeRegistry, "merge", 0)
	Begin(tr, ScopeType, "build", root.ID()).End("")
	root.WithExtra("copied", "2").End("")

	out := buf.String()
	if strings.Contains(out, "build") {
		t.Fatalf("type scope must be filtered at registry level:\n%s", out)
	}
	if strings.Count(out, "merge") != 2 || !strings.Contains(out, "{copied=2}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelAll, FormatNDJSON)
	Point(tr, ScopeLayout, "walk", "3 elements", 0)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["scope"] != "layout" || got["detail"] != "3 elements" {
		t.Fatalf("unexpected event %v", got)
	}
}

func TestRingTracerKeepsLatest(t *testing.T) {
	ring := NewRingTracer(3, LevelAll)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeDriver, name, "", 0)
	}
	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []string{"c", "d", "e"} {
		if events[i].Name != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, events[i].Name)
		}
	}
}

func TestBeginContextNestsSpans(t *testing.T) {
	ring := NewRingTracer(16, LevelAll)
	ctx := WithTracer(context.Background(), ring)

	ctx, outer := BeginContext(ctx, ScopeDriver, "load")
	_, inner := BeginContext(ctx, ScopeRegistry, "merge")
	inner.End("")
	outer.End("")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Fatalf("inner span must have the outer span as parent")
	}
}

func TestDisabledTracerIsInert(t *testing.T) {
	s := Begin(Nop, ScopeDriver, "x", 0)
	if s.WithExtra("k", "v").End("") != 0 || s.ID() != 0 {
		t.Fatalf("spans of a disabled tracer must be inert")
	}
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("LevelOff must yield a disabled tracer")
	}
}

func TestNewBothModeDumpsRing(t *testing.T) {
	var stream bytes.Buffer
	tr, err := New(Config{Level: LevelAll, Mode: ModeBoth, Output: &stream})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	Point(tr, ScopeDriver, "hello", "", 0)
	multi, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("expected a multi tracer, got %T", tr)
	}
	ring, ok := multi.Ring()
	if !ok {
		t.Fatalf("both mode keeps a ring")
	}
	var dump bytes.Buffer
	if err := ring.Dump(&dump, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(stream.String(), "hello") || !strings.Contains(dump.String(), "hello") {
		t.Fatalf("event missing: stream=%q ring=%q", stream.String(), dump.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
