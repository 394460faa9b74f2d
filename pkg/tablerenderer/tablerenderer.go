// Package tablerenderer implements ingestdomain.TableRenderer: a pure
// function turning an ExtractedTable's cell grid into plain, markdown, or
// HTML text. It never performs I/O and carries no shared state, matching
// §4.6's "pure function over ExtractedTable" contract.
package tablerenderer

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
)

// Mode selects the rendered text's format.
type Mode string

const (
	ModePlain    Mode = "plain"
	ModeMarkdown Mode = "markdown"
	ModeHTML     Mode = "html"
)

// Renderer implements ingestdomain.TableRenderer for one configured Mode.
type Renderer struct {
	mode Mode
}

// NewMode returns a Renderer for mode ("plain", "markdown", or "html").
func NewMode(mode string) *Renderer {
	return &Renderer{mode: Mode(mode)}
}

// Render fills table.RenderedText from table.Grid and returns it. A merged
// cell (RowSpan/ColSpan > 1) is emitted once at its own grid position;
// every other grid position its span covers is a seam the renderer must
// skip over without re-emitting the cell's text.
func (r *Renderer) Render(table *ingestdomain.ExtractedTable) (string, error) {
	grid := table.Grid
	if len(grid) == 0 {
		table.RenderedText = ""
		return "", nil
	}

	origins := buildOriginMap(grid)

	var text string
	switch r.mode {
	case ModeMarkdown:
		text = renderMarkdown(grid, origins, table.Caption)
	case ModeHTML:
		text = renderHTML(grid, origins, table.Caption)
	case ModePlain, "":
		text = renderPlain(grid, origins, table.Caption)
	default:
		return "", fmt.Errorf("tablerenderer: unknown mode %q", r.mode)
	}

	table.RenderedText = text
	return text, nil
}

// cellOrigin records, for a covered grid cell, which origin cell owns it.
type cellOrigin struct {
	row, col int
	isOrigin bool
}

// buildOriginMap maps every (row, col) position in the grid to the origin
// cell that owns it. Every grid position starts out as its own origin;
// a cell with RowSpan/ColSpan > 1 then claims the positions its span
// covers (its RowStart/ColStart are informational and not consulted here,
// since a covered position's own RowStart/ColStart can't be distinguished
// from an unset zero value). A later cell's span always wins a covered
// position, matching row-major extraction order.
func buildOriginMap(grid [][]ingestdomain.TableCell) map[[2]int]cellOrigin {
	owners := make(map[[2]int]cellOrigin)
	for r, row := range grid {
		for c := range row {
			owners[[2]int{r, c}] = cellOrigin{row: r, col: c, isOrigin: true}
		}
	}
	for r, row := range grid {
		for c, cell := range row {
			rowSpan, colSpan := cell.RowSpan, cell.ColSpan
			if rowSpan < 1 {
				rowSpan = 1
			}
			if colSpan < 1 {
				colSpan = 1
			}
			for dr := 0; dr < rowSpan; dr++ {
				for dc := 0; dc < colSpan; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					key := [2]int{r + dr, c + dc}
					if _, inGrid := owners[key]; inGrid {
						owners[key] = cellOrigin{row: r, col: c, isOrigin: false}
					}
				}
			}
		}
	}
	return owners
}

func renderPlain(grid [][]ingestdomain.TableCell, origins map[[2]int]cellOrigin, caption string) string {
	var b strings.Builder
	if caption != "" {
		b.WriteString(caption)
		b.WriteString("\n")
	}
	for r, row := range grid {
		cells := make([]string, len(row))
		for c, cell := range row {
			o, ok := origins[[2]int{r, c}]
			if ok && !o.isOrigin {
				cells[c] = "" // non-origin seam: empty placeholder
				continue
			}
			cells[c] = strings.TrimSpace(cell.Text)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMarkdown(grid [][]ingestdomain.TableCell, origins map[[2]int]cellOrigin, caption string) string {
	var b strings.Builder
	if caption != "" {
		b.WriteString(caption)
		b.WriteString("\n\n")
	}
	for r, row := range grid {
		var cells []string
		for c, cell := range row {
			o, ok := origins[[2]int{r, c}]
			if ok && !o.isOrigin {
				continue // non-origin seam: omitted entirely in markdown
			}
			cells = append(cells, strings.ReplaceAll(strings.TrimSpace(cell.Text), "|", "\\|"))
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
		if r == 0 {
			sep := make([]string, len(cells))
			for i := range sep {
				sep[i] = "---"
			}
			b.WriteString("| ")
			b.WriteString(strings.Join(sep, " | "))
			b.WriteString(" |\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHTML(grid [][]ingestdomain.TableCell, origins map[[2]int]cellOrigin, caption string) string {
	var b strings.Builder
	b.WriteString("<table>\n")
	if caption != "" {
		b.WriteString("<caption>")
		b.WriteString(caption)
		b.WriteString("</caption>\n")
	}
	for r, row := range grid {
		b.WriteString("<tr>")
		for c, cell := range row {
			o, ok := origins[[2]int{r, c}]
			if ok && !o.isOrigin {
				continue // non-origin seam: omitted, covered by the origin's span attrs
			}
			rowSpan, colSpan := cell.RowSpan, cell.ColSpan
			if rowSpan < 1 {
				rowSpan = 1
			}
			if colSpan < 1 {
				colSpan = 1
			}
			b.WriteString("<td")
			if rowSpan > 1 {
				fmt.Fprintf(&b, " rowspan=\"%d\"", rowSpan)
			}
			if colSpan > 1 {
				fmt.Fprintf(&b, " colspan=\"%d\"", colSpan)
			}
			b.WriteString(">")
			b.WriteString(strings.TrimSpace(cell.Text))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>")
	return b.String()
}
