package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under a header line, each column padded to its widest
// cell. Rows shorter than the header render empty trailing cells.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(w io.Writer, headers []string) *Table {
	return &Table{w: w, headers: headers}
}

// AddRow appends one row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Render writes the header, a rule, and every row. A table with no headers
// renders nothing.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintln(t.w, t.line(t.headers, widths))

	total := len(widths)*2 - 2
	for _, w := range widths {
		total += w
	}
	fmt.Fprintln(t.w, strings.Repeat("─", total))

	for _, row := range t.rows {
		fmt.Fprintln(t.w, t.line(row, widths))
	}
}

func (t *Table) line(cells []string, widths []int) string {
	padded := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell))
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}
