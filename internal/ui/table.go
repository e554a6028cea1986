package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Table is a plain column layout for terminal listings. Cells wider than
// MaxWidth are truncated with "...".
type Table struct {
	Title    string
	Columns  []string
	Rows     [][]string
	MaxWidth int
	Color    bool
}

// Append adds a row; missing cells render empty.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the title, the header line and every row.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = runewidth.StringWidth(col)
	}
	cells := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				cells[r][i] = truncate(row[i], t.MaxWidth)
			}
			if cw := runewidth.StringWidth(cells[r][i]); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.style(titleStyle, t.Title))
		b.WriteString("\n\n")
	}
	b.WriteString(t.style(headerStyle, line(t.Columns, widths)))
	b.WriteString("\n")
	for _, row := range cells {
		b.WriteString(line(row, widths))
		b.WriteString("\n")
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}

func (t *Table) style(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

func line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
