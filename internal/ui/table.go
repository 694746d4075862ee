package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Width 0 sizes the column to its widest cell.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row is a slice of cell values.
type Row []string

// Table renders a plain lipgloss-styled table for command output.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // highlighted row, -1 for none
}

// NewTable creates a new table.
func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, Row(cells))
}

func (t *Table) widths() []int {
	ws := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		if col.Width > 0 {
			ws[i] = col.Width
			continue
		}
		ws[i] = lipgloss.Width(col.Title)
		for _, r := range t.Rows {
			if i < len(r) {
				ws[i] = max(ws[i], lipgloss.Width(r[i]))
			}
		}
	}
	return ws
}

// fit truncates or pads s to exactly width visible cells.
func fit(s string, width int, right bool) string {
	if lipgloss.Width(s) > width {
		rs := []rune(s)
		if width <= 1 {
			return string(rs[:width])
		}
		for lipgloss.Width(string(rs)) > width-1 {
			rs = rs[:len(rs)-1]
		}
		return string(rs) + "…"
	}
	if right {
		return strings.Repeat(" ", width-lipgloss.Width(s)) + s
	}
	return padR(s, width)
}

// Render returns the full table as a string.
func (t *Table) Render() string {
	var sb strings.Builder
	ws := t.widths()

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)

	parts := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		parts[i] = headerStyle.Render(fit(col.Title, ws[i], col.Right))
	}
	sb.WriteString(strings.Join(parts, "  ") + "\n")

	for i := range t.Columns {
		parts[i] = StyleDim.Render(strings.Repeat("─", ws[i]))
	}
	sb.WriteString(strings.Join(parts, "  ") + "\n")

	for ri, row := range t.Rows {
		style := cellStyle
		if ri == t.SelIdx {
			style = StyleSelected
		}
		for i, col := range t.Columns {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			parts[i] = style.Render(fit(val, ws[i], col.Right))
		}
		sb.WriteString(strings.Join(parts, "  ") + "\n")
	}
	return sb.String()
}

// KeyValueBlock renders key/value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, lipgloss.Width(p[0])+1)
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		sb.WriteString("  " + StyleMeta.Render(padR(p[0]+":", keyWidth)) + "  " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}
