package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"typelib/internal/typename"
	"typelib/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [NAME...]",
	Short: "Check inputs and type names",
	Long: `Validate loads and merges the inputs, reporting the first conflict.
Each NAME is checked against the type name grammar and, when inputs are
available, resolved in the merged registry.`,
	RunE: runValidate,
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

// nameCheck is the outcome of validating one NAME argument.
type nameCheck struct {
	name   string
	err    error
	size   uint64
	fixed  bool
	solved bool
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var r *types.Registry
	paths, pathErr := s.inputPaths(cmd)
	switch {
	case pathErr == nil:
		if r, err = s.loadWithUI("validating", paths); err != nil {
			return err
		}
		s.printf("%s %d inputs, %d types, %d aliases\n",
			okColor.Sprint("ok"), len(paths), r.Len(), len(r.Aliases()))
	case len(args) == 0:
		return pathErr
	}

	failed := 0
	for _, c := range checkNames(r, args) {
		if c.err != nil {
			failed++
			fmt.Fprintf(s.out, "%s %s: %v\n", failColor.Sprint("error"), c.name, c.err)
			continue
		}
		line := okColor.Sprint("ok") + " " + c.name
		if c.solved {
			kind := "variable"
			if c.fixed {
				kind = "fixed"
			}
			line += fmt.Sprintf(" (%d bytes, %s)", c.size, kind)
		}
		fmt.Fprintln(s.out, line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d names are invalid", failed, len(args))
	}
	return nil
}

// checkNames validates names against the grammar, then resolves them in r
// when r is not nil.
func checkNames(r *types.Registry, names []string) []nameCheck {
	out := make([]nameCheck, 0, len(names))
	for _, name := range names {
		c := nameCheck{name: name}
		if err := typename.Validate(name, true); err != nil {
			c.err = err
		} else if r != nil {
			t, err := r.Build(name)
			if err != nil {
				c.err = err
			} else {
				c.solved, c.size, c.fixed = true, t.Size(), t.FixedBufferSize()
			}
		}
		out = append(out, c)
	}
	return out
}
