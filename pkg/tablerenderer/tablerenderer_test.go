package tablerenderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

func simpleTable() *ingestdomain.ExtractedTable {
	return &ingestdomain.ExtractedTable{
		TableID: "t1",
		Grid: [][]ingestdomain.TableCell{
			{{Text: "Name"}, {Text: "Age"}},
			{{Text: "Alice"}, {Text: "30"}},
		},
	}
}

func spannedTable() *ingestdomain.ExtractedTable {
	return &ingestdomain.ExtractedTable{
		TableID: "t2",
		Caption: "Quarterly results",
		Grid: [][]ingestdomain.TableCell{
			{{Text: "Region", RowSpan: 2}, {Text: "Q1"}, {Text: "Q2"}},
			{{Text: "unused placeholder"}, {Text: "10"}, {Text: "20"}},
		},
	}
}

func TestRenderer_Plain(t *testing.T) {
	r := NewMode("plain")
	text, err := r.Render(simpleTable())
	require.NoError(t, err)
	assert.Equal(t, "Name | Age\nAlice | 30", text)
}

func TestRenderer_Markdown(t *testing.T) {
	r := NewMode("markdown")
	text, err := r.Render(simpleTable())
	require.NoError(t, err)
	assert.Contains(t, text, "| Name | Age |")
	assert.Contains(t, text, "| --- | --- |")
	assert.Contains(t, text, "| Alice | 30 |")
}

func TestRenderer_HTML(t *testing.T) {
	r := NewMode("html")
	text, err := r.Render(simpleTable())
	require.NoError(t, err)
	assert.Contains(t, text, "<table>")
	assert.Contains(t, text, "<td>Name</td>")
	assert.Contains(t, text, "</table>")
}

func TestRenderer_RowSpan_OriginOnlyOnce(t *testing.T) {
	r := NewMode("html")
	text, err := r.Render(spannedTable())
	require.NoError(t, err)
	assert.Contains(t, text, `rowspan="2"`)
	// The origin cell's text appears exactly once across both rows.
	assert.Equal(t, 1, countOccurrences(text, ">Region<"))
}

func TestRenderer_SetsRenderedTextOnTable(t *testing.T) {
	r := NewMode("plain")
	table := simpleTable()
	_, err := r.Render(table)
	require.NoError(t, err)
	assert.Equal(t, table.RenderedText, "Name | Age\nAlice | 30")
}

func TestRenderer_EmptyGrid(t *testing.T) {
	r := NewMode("plain")
	text, err := r.Render(&ingestdomain.ExtractedTable{})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestRenderer_UnknownMode(t *testing.T) {
	r := NewMode("yaml")
	_, err := r.Render(simpleTable())
	assert.Error(t, err)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
