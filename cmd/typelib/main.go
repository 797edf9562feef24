package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"typelib/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "typelib",
	Short: "Inspect, merge and measure type registries",
	Long: `typelib loads type declarations (.toml) and registry snapshots (.tlb),
merges them into one registry and answers questions about the types and the
binary buffers laid out after them`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(minimalCmd)
	rootCmd.AddCommand(sameCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to typelib.toml (default: nearest one above the working directory)")
	flags.StringSliceP("input", "i", nil, "declaration (.toml) or snapshot (.tlb) file to load; repeatable")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.BoolP("verbose", "v", false, "log registry operations to stderr")
	flags.String("ui", "auto", "show input loading progress (auto|on|off)")
	flags.Bool("no-cache", false, "bypass the snapshot disk cache")
	flags.String("byte-order", "", "byte order of buffers (little|big), overrides [layout]")
	flags.Int("count-width", 0, "width of container element counts (1|2|4|8), overrides [layout]")
	flags.String("trace", "", "trace output file (\"-\" for stderr), overrides [trace] output")
	flags.String("trace-level", "", "trace level (off|driver|registry|type|all)")
	flags.String("trace-mode", "", "trace storage mode (stream|ring|both)")
	flags.String("trace-format", "", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 0, "ring buffer capacity for ring/both modes")
}

// main executes the root command. A failing command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
