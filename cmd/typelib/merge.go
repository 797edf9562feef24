package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"typelib/internal/snapshot"
	"typelib/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge -o OUT [INPUT...]",
	Short: "Merge inputs into one registry",
	Long: `Merge loads every input and merges them in order. Types present in
several inputs must describe the same layout; their metadata is combined.
OUT is a .tlb snapshot or a .json description.`,
	RunE: runMerge,
}

var minimalCmd = &cobra.Command{
	Use:   "minimal TYPE -o OUT",
	Short: "Extract the smallest registry holding TYPE",
	Long: `Minimal writes a registry containing TYPE and every type it depends on,
optionally with the aliases of those types.`,
	Args: cobra.ExactArgs(1),
	RunE: runMinimal,
}

var sameCmd = &cobra.Command{
	Use:   "same A B",
	Short: "Check whether two inputs define the same types",
	Args:  cobra.ExactArgs(2),
	RunE:  runSame,
}

func init() {
	mergeCmd.Flags().StringP("output", "o", "", "output file (.tlb or .json)")
	_ = mergeCmd.MarkFlagRequired("output")
	minimalCmd.Flags().StringP("output", "o", "", "output file (.tlb or .json)")
	minimalCmd.Flags().Bool("aliases", true, "keep aliases whose target is kept")
	_ = minimalCmd.MarkFlagRequired("output")
}

func runMerge(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	paths, err := s.inputPaths(cmd, args...)
	if err != nil {
		return err
	}
	r, err := s.loadWithUI("merging", paths)
	if err != nil {
		return err
	}
	if err := writeRegistry(out, r); err != nil {
		return err
	}
	s.printf("%s merged %d inputs into %s (%d types)\n", okColor.Sprint("ok"), len(paths), out, r.Len())
	return nil
}

func runMinimal(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	withAliases, err := cmd.Flags().GetBool("aliases")
	if err != nil {
		return fmt.Errorf("failed to get aliases flag: %w", err)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	paths, err := s.inputPaths(cmd)
	if err != nil {
		return err
	}
	r, err := s.loadWithUI("loading", paths)
	if err != nil {
		return err
	}
	t, err := r.Build(args[0])
	if err != nil {
		return err
	}
	done := s.timer.Track("minimal")
	sub, err := r.Minimal(t, withAliases)
	if err != nil {
		done("")
		return err
	}
	done(fmt.Sprintf("%d of %d types", sub.Len(), r.Len()))
	if err := writeRegistry(out, sub); err != nil {
		return err
	}
	s.printf("%s wrote %s (%d types)\n", okColor.Sprint("ok"), out, sub.Len())
	return nil
}

func runSame(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	a, err := s.loadInputs(args[:1])
	if err != nil {
		return err
	}
	b, err := s.loadInputs(args[1:])
	if err != nil {
		return err
	}
	if !a.SameTypes(b) || !b.SameTypes(a) {
		fmt.Fprintf(s.out, "%s %s and %s differ\n", failColor.Sprint("different"), args[0], args[1])
		for _, line := range registryDiff(a, b) {
			fmt.Fprintln(s.out, "  "+line)
		}
		return fmt.Errorf("registries differ")
	}
	fmt.Fprintf(s.out, "%s %d types\n", okColor.Sprint("same"), a.Len())
	return nil
}

// registryDiff lists the type names missing from one side or defined
// differently on both.
func registryDiff(a, b *types.Registry) []string {
	var out []string
	for _, t := range a.Types() {
		other, ok := b.FindByName(t.Name())
		switch {
		case !ok:
			out = append(out, "only in first: "+t.Name())
		case !types.ModelEqual(t, other):
			out = append(out, "changed: "+t.Name())
		}
	}
	for _, t := range b.Types() {
		if !a.Has(t.Name()) {
			out = append(out, "only in second: "+t.Name())
		}
	}
	return out
}

// writeRegistry stores r at path as a msgpack snapshot (.tlb) or as JSON
// descriptions (.json). The file is written through a temporary file and
// renamed into place.
func writeRegistry(path string, r *types.Registry) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tlb":
		data, err = snapshot.Marshal(r)
	case ".json":
		data, err = json.MarshalIndent(snapshot.Capture(r), "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("%s: unsupported output (expected .tlb or .json)", path)
	}
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".typelib-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
