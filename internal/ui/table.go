package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxCellWidth is the widest a table cell is printed before truncation.
const MaxCellWidth = 40

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// WriteTable prints rows as space-aligned columns with an accented header.
// Padding is computed on the plain text so color escapes never skew alignment.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	cells := make([][]string, 0, len(rows)+1)

	measure := func(row []string) []string {
		out := make([]string, len(header))
		for i := range header {
			if i < len(row) {
				out[i] = Truncate(strings.ReplaceAll(row[i], "\n", " "), MaxCellWidth)
			}
			if n := utf8.RuneCountInString(out[i]); n > widths[i] {
				widths[i] = n
			}
		}
		return out
	}
	cells = append(cells, measure(header))
	for _, r := range rows {
		cells = append(cells, measure(r))
	}

	for ri, row := range cells {
		var b strings.Builder
		for i, cell := range row {
			last := i == len(row)-1
			pad := ""
			if !last {
				pad = strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+2)
			}
			if ri == 0 {
				cell = RenderAccent(cell)
			}
			b.WriteString(cell)
			b.WriteString(pad)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
