package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"typelib/internal/types"
)

var describeCmd = &cobra.Command{
	Use:   "describe [TYPE]",
	Short: "Describe a type, or every type of the loaded registry",
	Long: `Describe prints the descriptor of TYPE, building arrays and container
instantiations on demand. Without TYPE every type is described in dependency
order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().Bool("recursive", false, "expand field and element types")
	describeCmd.Flags().Bool("layout", false, "include sizes and field offsets")
	describeCmd.Flags().String("format", "pretty", "output format (pretty|json|msgpack)")
}

var (
	nameColor  = color.New(color.FgCyan, color.Bold)
	classColor = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
)

func runDescribe(cmd *cobra.Command, args []string) error {
	recursive, err := cmd.Flags().GetBool("recursive")
	if err != nil {
		return fmt.Errorf("failed to get recursive flag: %w", err)
	}
	withLayout, err := cmd.Flags().GetBool("layout")
	if err != nil {
		return fmt.Errorf("failed to get layout flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or msgpack)", format)
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

	opts := types.DescribeOptions{Recursive: recursive, LayoutInfo: withLayout}
	var descs []types.Description
	if len(args) == 1 {
		t, err := r.Build(args[0])
		if err != nil {
			return err
		}
		descs = append(descs, t.Describe(opts))
	} else {
		descs = r.DescribeAll(opts)
	}
	return writeDescriptions(s.out, descs, format, len(args) == 1)
}

func writeDescriptions(w io.Writer, descs []types.Description, format string, single bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if single {
			return enc.Encode(descs[0])
		}
		return enc.Encode(descs)
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.SetOmitEmpty(true)
		if single {
			return enc.Encode(descs[0])
		}
		return enc.Encode(descs)
	default:
		for i := range descs {
			if err := writePretty(w, &descs[i], 0); err != nil {
				return err
			}
		}
		return nil
	}
}

// writePretty renders d as an indented outline. Expanded field and element
// types are rendered below their owner.
func writePretty(w io.Writer, d *types.Description, depth int) error {
	indent := strings.Repeat("  ", depth)
	header := indent + nameColor.Sprint(d.Name) + " " + classColor.Sprint(d.Class)
	var attrs []string
	if d.Size != nil {
		attrs = append(attrs, fmt.Sprintf("%d bytes", *d.Size))
	}
	if d.Opaque {
		attrs = append(attrs, "opaque")
	}
	if d.Null {
		attrs = append(attrs, "null")
	}
	if d.Category != "" {
		attrs = append(attrs, d.Category)
	}
	if len(attrs) > 0 {
		header += dimColor.Sprint(" (" + strings.Join(attrs, ", ") + ")")
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	body := indent + "  "
	if err := writeMetadata(w, body, d.Metadata); err != nil {
		return err
	}

	var nested []*types.Description
	switch d.Class {
	case "enum":
		tbl := newTable(body, nil, dimColor)
		for _, s := range d.Symbols {
			tbl.add(s.Name, "= "+strconv.FormatInt(s.Value, 10))
		}
		if err := tbl.write(w); err != nil {
			return err
		}
	case "compound":
		tbl := newTable(body, nil, nameColor, dimColor)
		for i := range d.Fields {
			f := &d.Fields[i]
			var place []string
			if f.Offset != nil {
				place = append(place, fmt.Sprintf("@%d", *f.Offset))
			}
			if f.Skip > 0 {
				place = append(place, fmt.Sprintf("skip %d", f.Skip))
			}
			tbl.add(f.Name, f.Type.Name, strings.Join(place, " "))
			if f.Type.Class != "" {
				nested = append(nested, &f.Type)
			}
		}
		if err := tbl.write(w); err != nil {
			return err
		}
	case "array", "container":
		if d.Element == nil {
			break
		}
		tbl := newTable(body, nil, nameColor)
		if d.Class == "container" {
			tbl.add("model", d.Model)
			tbl.add("random access", strconv.FormatBool(d.RandomAccess))
		} else {
			tbl.add("length", strconv.FormatUint(d.Length, 10))
		}
		tbl.add("element", d.Element.Name)
		if err := tbl.write(w); err != nil {
			return err
		}
		if d.Element.Class != "" {
			nested = append(nested, d.Element)
		}
	}

	for _, n := range nested {
		if err := writePretty(w, n, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeMetadata(w io.Writer, indent string, md map[string][]string) error {
	if len(md) == 0 {
		return nil
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tbl := newTable(indent, dimColor)
	for _, k := range keys {
		tbl.add(k+":", strings.Join(md[k], ", "))
	}
	return tbl.write(w)
}
