// Package version holds the typelib build information. The variables are
// overridden at build time with -ldflags "-X typelib/internal/version.Version=...".
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the typelib command.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""

	// SnapshotSchema is the schema number written into .tlb snapshots. It is
	// set by the snapshot-aware callers so the banner can report it.
	SnapshotSchema = 0
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with one color per numeric component. The
// pre-release suffix is left plain. Colors follow color.NoColor.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Banner is the multi-line text printed by "typelib version".
func Banner() string {
	var b strings.Builder
	fmt.Fprintf(&b, "typelib %s\n", Colored())
	if GitCommit != "" {
		fmt.Fprintf(&b, "commit:   %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&b, "built:    %s\n", BuildDate)
	}
	if SnapshotSchema != 0 {
		fmt.Fprintf(&b, "snapshot: schema %d\n", SnapshotSchema)
	}
	return b.String()
}
