package main

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// table aligns cells in columns by display width. Colors are applied after
// padding so escape sequences do not count towards the width.
type table struct {
	indent string
	colors []*color.Color
	rows   [][]string
}

func newTable(indent string, colors ...*color.Color) *table {
	return &table{indent: indent, colors: colors}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	var widths []int
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func (t *table) write(w io.Writer) error {
	widths := t.widths()
	var b strings.Builder
	for _, row := range t.rows {
		b.WriteString(t.indent)
		for i, cell := range row {
			text := cell
			if i < len(row)-1 {
				text = runewidth.FillRight(cell, widths[i])
			}
			if i < len(t.colors) && t.colors[i] != nil {
				text = t.colors[i].Sprint(text)
			}
			b.WriteString(text)
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
