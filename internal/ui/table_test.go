package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// KeyValueBlock
// ---------------------------------------------------------------------------

func TestKeyValueBlockContainsTitleAndPairs(t *testing.T) {
	out := KeyValueBlock("Project 12", [][2]string{
		{"Range", "[0, 400]"},
		{"Invocations", "600"},
	})
	assert.Contains(t, out, "Project 12")
	assert.Contains(t, out, "Range:")
	assert.Contains(t, out, "[0, 400]")
	assert.Contains(t, out, "Invocations:")
	assert.Contains(t, out, "600")
}

func TestKeyValueBlockPreservesOrder(t *testing.T) {
	out := KeyValueBlock("", [][2]string{{"First", "a"}, {"Second", "b"}, {"Third", "c"}})
	i1, i2, i3 := strings.Index(out, "First"), strings.Index(out, "Second"), strings.Index(out, "Third")
	require.Greater(t, i1, -1)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func TestKeyValueBlockHasBorder(t *testing.T) {
	out := KeyValueBlock("Bordered", [][2]string{{"Key", "Val"}})
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "╰")
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

func TestNewTableIsEmpty(t *testing.T) {
	tbl := NewTable(Column{Title: "Name"}, Column{Title: "Address"})
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, -1, tbl.SelIdx)
}

func TestTableRenderHeadersRowsAndDivider(t *testing.T) {
	tbl := NewTable(Column{Title: "Label"}, Column{Title: "Version", Width: 8})
	tbl.AddRow("Curated", "v3")
	tbl.AddRow("Explorations", "auto")

	out := tbl.Render()
	for _, want := range []string{"Label", "Version", "Curated", "v3", "Explorations", "auto", "────"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Curated"), strings.Index(out, "Explorations"))
}

func TestTableAutoWidthFitsWidestCell(t *testing.T) {
	tbl := NewTable(Column{Title: "A"}, Column{Title: "B"})
	tbl.AddRow("a-long-cell", "x")
	lines := strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Index(lines[0], "B"), strings.Index(lines[2], "x"))
}

func TestTableTruncatesFixedWidth(t *testing.T) {
	tbl := NewTable(Column{Title: "Addr", Width: 6})
	tbl.AddRow("0x1234567890")
	assert.Contains(t, tbl.Render(), "0x123…")
}

func TestTableRightAlign(t *testing.T) {
	assert.Equal(t, "   42", fit("42", 5, true))
	assert.Equal(t, "42   ", fit("42", 5, false))
}

func TestTableShortRowDoesNotPanic(t *testing.T) {
	tbl := NewTable(Column{Title: "A"}, Column{Title: "B"}, Column{Title: "C"})
	tbl.AddRow("only")
	assert.Contains(t, tbl.Render(), "only")
}
