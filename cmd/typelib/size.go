package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"typelib/internal/layout"
	"typelib/internal/types"
)

var sizeCmd = &cobra.Command{
	Use:   "size TYPE FILE",
	Short: "Compute the size of a value laid out in a binary file",
	Long: `Size walks the buffer stored in FILE as a value of TYPE, starting at
--offset, and prints how many bytes it spans. Containers are read as an
element count followed by the elements.`,
	Args: cobra.ExactArgs(2),
	RunE: runSize,
}

func init() {
	sizeCmd.Flags().Int("offset", 0, "byte offset of the value inside FILE")
	sizeCmd.Flags().Bool("dump", false, "print the decoded value")
	sizeCmd.Flags().Int("max-elements", 16, "elements printed per array or container with --dump")
}

func runSize(cmd *cobra.Command, args []string) error {
	offset, err := cmd.Flags().GetInt("offset")
	if err != nil {
		return fmt.Errorf("failed to get offset flag: %w", err)
	}
	dump, err := cmd.Flags().GetBool("dump")
	if err != nil {
		return fmt.Errorf("failed to get dump flag: %w", err)
	}
	maxElements, err := cmd.Flags().GetInt("max-elements")
	if err != nil {
		return fmt.Errorf("failed to get max-elements flag: %w", err)
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
	r, err := s.loadInputs(paths)
	if err != nil {
		return err
	}
	t, err := r.Build(args[0])
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	engine, err := s.engine()
	if err != nil {
		return err
	}

	done := s.timer.Track("size")
	size, err := engine.BufferSizeAt(t, buf, offset)
	done("")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, size)
	if !dump {
		return nil
	}
	v, err := engine.At(t, buf, offset)
	if err != nil {
		return err
	}
	return writeValue(s.out, v, "", 0, maxElements)
}

// writeValue prints v one line per scalar, nesting compounds, arrays and
// containers. At most limit elements of a sequence are printed.
func writeValue(w io.Writer, v layout.Value, label string, depth, limit int) error {
	indent := strings.Repeat("  ", depth)
	if label != "" {
		label += " "
	}
	t := v.Type()
	switch t.Kind() {
	case types.KindCompound:
		fmt.Fprintf(w, "%s%s%s\n", indent, label, nameColor.Sprint(t.Name()))
		for i, f := range t.Fields() {
			fv, err := v.FieldByIndex(i)
			if err != nil {
				return err
			}
			if err := writeValue(w, fv, f.Name+":", depth+1, limit); err != nil {
				return err
			}
		}
		return nil

	case types.KindArray, types.KindContainer:
		n, err := v.Len()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s%s [%d]\n", indent, label, nameColor.Sprint(t.Name()), n)
		for i := range min(n, limit) {
			ev, err := v.Element(i)
			if err != nil {
				return err
			}
			if err := writeValue(w, ev, "["+strconv.Itoa(i)+"]", depth+1, limit); err != nil {
				return err
			}
		}
		if n > limit {
			fmt.Fprintf(w, "%s  %s\n", indent, dimColor.Sprintf("... %d more", n-limit))
		}
		return nil
	}

	text, err := scalarText(v)
	if err != nil {
		// sizes without a scalar encoding
		text = hex.EncodeToString(v.Bytes())
	}
	fmt.Fprintf(w, "%s%s%s\n", indent, label, text)
	return nil
}

func scalarText(v layout.Value) (string, error) {
	t := v.Type()
	switch t.Kind() {
	case types.KindNumeric:
		switch t.Category() {
		case types.NumericFloat:
			f, err := v.Float()
			return strconv.FormatFloat(f, 'g', -1, 64), err
		case types.NumericUInt:
			u, err := v.Uint()
			return strconv.FormatUint(u, 10), err
		default:
			i, err := v.Int()
			return strconv.FormatInt(i, 10), err
		}
	case types.KindCharacter:
		u, err := v.Uint()
		if err != nil {
			return "", err
		}
		if u <= 0x10FFFF {
			return strconv.QuoteRune(rune(u)), nil
		}
		return strconv.FormatUint(u, 10), nil
	case types.KindEnum:
		name, err := v.Symbol()
		if err != nil {
			i, ierr := v.Int()
			if ierr != nil {
				return "", ierr
			}
			return fmt.Sprintf("%d (no symbol)", i), nil
		}
		return name, nil
	default:
		if len(v.Bytes()) == 0 {
			return dimColor.Sprint("<empty>"), nil
		}
		return hex.EncodeToString(v.Bytes()), nil
	}
}
