// Package render turns generated grids into text views and world placements.
package render

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

const (
	emptyGlyph  = '.'
	failedGlyph = '!'
	spareGlyphs = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Glyphs assigns one symbol per tile type. A tile gets the upper-cased first
// letter of its id unless another tile already took it.
func Glyphs(catalog *wfc.Catalog) map[string]rune {
	glyphs := make(map[string]rune, catalog.Len())
	taken := map[rune]bool{emptyGlyph: true, failedGlyph: true}

	for _, t := range catalog.Types() {
		var g rune
		for _, r := range t.ID {
			r = unicode.ToUpper(r)
			if !taken[r] && unicode.IsPrint(r) && r != ' ' {
				g = r
			}
			break
		}
		if g == 0 {
			g = '?'
			for _, r := range spareGlyphs {
				if !taken[r] {
					g = r
					break
				}
			}
		}
		taken[g] = true
		glyphs[t.ID] = g
	}
	return glyphs
}

// ASCII draws the grid with north at the top. Each cell is 5 chars wide and
// 3 tall:
//
//	  R
//	G[C]R
//	  B
//
// The outer characters are the first connector on each edge, blank when the
// edge is empty. Empty cells show '.', failed cells '!'.
func ASCII(g *wfc.Grid, catalog *wfc.Catalog, failures []wfc.Coord) string {
	glyphs := Glyphs(catalog)
	failed := make(map[wfc.Coord]bool, len(failures))
	for _, c := range failures {
		failed[c] = true
	}

	var output strings.Builder
	for y := g.Dim() - 1; y >= 0; y-- {
		var top, mid, bottom strings.Builder
		for x := 0; x < g.Dim(); x++ {
			c := wfc.Coord{X: x, Y: y}
			p := g.At(c)
			if p == nil {
				glyph := emptyGlyph
				if failed[c] {
					glyph = failedGlyph
				}
				top.WriteString("     ")
				fmt.Fprintf(&mid, " [%c] ", glyph)
				bottom.WriteString("     ")
				continue
			}

			edges, ok := catalog.EdgesOf(*p)
			glyph, known := glyphs[p.TileID]
			if !known {
				glyph = '?'
			}
			if !ok {
				edges = wfc.RotatedEdges{}
			}
			fmt.Fprintf(&top, "  %c  ", edgeMark(edges.Edge(wfc.North)))
			fmt.Fprintf(&mid, "%c[%c]%c", edgeMark(edges.Edge(wfc.West)), glyph, edgeMark(edges.Edge(wfc.East)))
			fmt.Fprintf(&bottom, "  %c  ", edgeMark(edges.Edge(wfc.South)))
		}
		output.WriteString(strings.TrimRight(top.String(), " ") + "\n")
		output.WriteString(strings.TrimRight(mid.String(), " ") + "\n")
		output.WriteString(strings.TrimRight(bottom.String(), " ") + "\n")
	}
	return output.String()
}

func edgeMark(e wfc.EdgeSet) rune {
	if len(e) == 0 {
		return ' '
	}
	s := e[0].String()
	if len(s) != 1 {
		return '*'
	}
	return rune(s[0])
}

// Legend lists the glyph of every tile type, sorted by glyph
func Legend(catalog *wfc.Catalog) string {
	glyphs := Glyphs(catalog)
	ids := make([]string, 0, len(glyphs))
	for id := range glyphs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return glyphs[ids[i]] < glyphs[ids[j]]
	})

	var output strings.Builder
	output.WriteString("Legend:\n")
	for _, id := range ids {
		t, _ := catalog.Lookup(id)
		fmt.Fprintf(&output, "  [%c] %-20s %s\n", glyphs[id], id, t.Symmetry)
	}
	fmt.Fprintf(&output, "  [%c] Empty\n", emptyGlyph)
	fmt.Fprintf(&output, "  [%c] Unsatisfiable\n", failedGlyph)
	output.WriteString("\n  Edge marks show the first connector on that side.\n")
	return output.String()
}
