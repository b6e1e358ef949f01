package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_RendersAlignedColumns(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name", "ID", "Records"})
	table.AddRow("quests", "pkg-1", "12")
	table.AddRow("overworld", "pkg-2", "7")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4, "header, rule, two rows")

	assert.Equal(t, "Name       ID     Records", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "─"))
	assert.Equal(t, "quests     pkg-1  12", lines[2])
	assert.Equal(t, "overworld  pkg-2  7", lines[3])
}

func TestTable_ShortRowsPadWithEmptyCells(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Name", "Description"})
	table.AddRow("quests")
	table.Render()

	assert.Contains(t, buf.String(), "quests")
}

func TestTable_NoHeadersRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil).Render()
	assert.Empty(t, buf.String())
}
