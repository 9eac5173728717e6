package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column with name and width.
type Column struct {
	Name  string
	Width int
	Align Alignment
	Style lipgloss.Style
}

// Alignment specifies column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table renders fixed-width rows such as the container listing.
type Table struct {
	columns []Column
	rows    [][]string
	indent  string
}

// NewTable creates a new table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{columns: columns, indent: "  "}
}

// SetIndent sets the left indent for the table.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// AddRow adds a row of values, padding missing trailing cells.
func (t *Table) AddRow(values ...string) *Table {
	for len(values) < len(t.columns) {
		values = append(values, "")
	}
	t.rows = append(t.rows, values)
	return t
}

// Len returns the number of rows added so far.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var sb strings.Builder
	header := make([]string, len(t.columns))
	total := 0
	for i, col := range t.columns {
		header[i] = cell(Bold.Render(col.Name), col.Width, col.Align)
		total += col.Width
	}
	total += len(t.columns) - 1

	sb.WriteString(t.indent + strings.Join(header, " ") + "\n")
	sb.WriteString(t.indent + Dim.Render(strings.Repeat("─", total)) + "\n")

	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			val := truncate(row[i], col.Width)
			if col.Style.Value() != "" {
				val = col.Style.Render(val)
			}
			cells[i] = cell(val, col.Width, col.Align)
		}
		sb.WriteString(t.indent + strings.Join(cells, " ") + "\n")
	}
	return sb.String()
}

// truncate shortens plain text to width, marking the cut with "...".
func truncate(s string, width int) string {
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-3 {
		r = r[:width-3]
	}
	return string(r) + "..."
}

// cell pads styled text to width. lipgloss.Width ignores ANSI sequences.
func cell(s string, width int, align Alignment) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	if align == AlignRight {
		return strings.Repeat(" ", pad) + s
	}
	return s + strings.Repeat(" ", pad)
}
