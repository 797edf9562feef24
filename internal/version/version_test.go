package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withPlainColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColoredKeepsVersionText(t *testing.T) {
	withPlainColors(t)
	cases := []string{"0.1.0-dev", "1.2.3", "nightly"}
	for _, v := range cases {
		orig := Version
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() with %q = %q", v, got)
		}
		Version = orig
	}
}

func TestBannerOptionalLines(t *testing.T) {
	withPlainColors(t)
	origCommit, origDate, origSchema := GitCommit, BuildDate, SnapshotSchema
	t.Cleanup(func() { GitCommit, BuildDate, SnapshotSchema = origCommit, origDate, origSchema })

	GitCommit, BuildDate, SnapshotSchema = "", "", 0
	if got := Banner(); strings.Count(got, "\n") != 1 || !strings.HasPrefix(got, "typelib ") {
		t.Fatalf("bare banner: %q", got)
	}

	GitCommit, BuildDate, SnapshotSchema = "abc123", "2024-01-15T10:30:00Z", 1
	got := Banner()
	for _, want := range []string{"commit:   abc123", "built:    2024-01-15T10:30:00Z", "schema 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("banner %q lacks %q", got, want)
		}
	}
}
