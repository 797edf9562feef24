package ui

import (
	"errors"
	"strings"
	"testing"
)

func TestProgressModelTracksInputs(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("loading", []string{"a.toml", "b.tlb"}, events).(*progressModel)

	m.Update(eventMsg{Input: "a.toml", Stage: StageParse, Status: StatusWorking})
	if m.items[0].status != "parsing" {
		t.Fatalf("expected parsing, got %q", m.items[0].status)
	}
	m.Update(eventMsg{Input: "a.toml", Status: StatusDone, Note: "cached"})
	m.Update(eventMsg{Input: "b.tlb", Status: StatusError, Err: errors.New("bad schema")})
	m.Update(eventMsg{Input: "unknown.toml", Status: StatusDone})
	m.Update(eventMsg{Stage: StageMerge, Status: StatusWorking})

	if got := m.fraction(); got != 1.0 {
		t.Fatalf("finished inputs must count fully, got %v", got)
	}
	view := m.View()
	for _, want := range []string{"loading (merging)", "done", "cached", "error", "bad schema"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}

	_, cmd := m.Update(doneMsg{})
	if !m.done || cmd == nil {
		t.Fatalf("doneMsg must finish the program")
	}
	if !strings.Contains(m.View(), "done: loading") {
		t.Fatalf("finished header missing:\n%s", m.View())
	}
}

func TestFractionFollowsStages(t *testing.T) {
	m := NewProgressModel("x", []string{"a", "b"}, nil).(*progressModel)
	m.applyEvent(Event{Input: "a", Stage: StageMerge, Status: StatusWorking})
	if got := m.fraction(); got != 0.45 {
		t.Fatalf("expected 0.45, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a/very/long/path.toml", 10, "a/very/..."},
		{"abcdef", 2, "ab"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
