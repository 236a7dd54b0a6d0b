package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/render"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func main() {
	inputFile := flag.String("input", "data/map.yaml", "Path to map YAML file")
	catalogFile := flag.String("catalog", "data/tiles.yaml", "Path to tile catalog YAML file")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	check := flag.Bool("check", true, "Check adjacent cells for connector mismatches")
	flag.Parse()

	m, err := export.LoadMapYAML(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading map: %v\n", err)
		os.Exit(1)
	}

	catalog, err := wfc.LoadCatalog(*catalogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		os.Exit(1)
	}

	output, mismatched, err := renderMap(m, catalog, *showLegend, *check)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output)
	}

	if mismatched {
		os.Exit(2)
	}
}

// renderMap draws m and, when check is set, reports adjacent pairs whose
// edges share no connector. mismatched is true if a generated pair failed.
func renderMap(m *export.MapYAML, catalog *wfc.Catalog, legend, check bool) (string, bool, error) {
	g, err := m.Grid()
	if err != nil {
		return "", false, err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Tile Map %dx%d (Seed: %d)\n", m.Dim, m.Dim, m.Seed))
	if !m.GeneratedAt.IsZero() {
		output.WriteString(fmt.Sprintf("Generated: %s\n", m.GeneratedAt.Format("2006-01-02 15:04:05")))
	}
	output.WriteString(fmt.Sprintf("Filled: %d, failed: %d, steps: %d\n", m.Filled, m.Failed, m.Steps))
	if m.CatalogFingerprint != "" && m.CatalogFingerprint != export.Fingerprint(catalog) {
		output.WriteString("WARNING: map was generated from a different catalog\n")
	}
	output.WriteString(strings.Repeat("=", 40) + "\n")
	output.WriteString(render.ASCII(g, catalog, m.FailureCoords()))
	output.WriteString("\n")

	mismatched := false
	if check {
		var unknown []string
		seen := make(map[string]bool)
		g.Each(func(c wfc.Coord, p wfc.PlacedTile) {
			if _, ok := catalog.Lookup(p.TileID); !ok && !seen[p.TileID] {
				seen[p.TileID] = true
				unknown = append(unknown, p.TileID)
			}
		})
		if len(unknown) > 0 {
			output.WriteString(fmt.Sprintf("WARNING: tiles missing from catalog: %s\n", strings.Join(unknown, ", ")))
		}

		violations := wfc.Validate(g, catalog)
		if len(violations) == 0 {
			output.WriteString("All adjacent tiles connect.\n\n")
		} else {
			output.WriteString("WARNING: Mismatched edges detected!\n")
			for _, v := range violations {
				note := ""
				if v.SeedPair {
					note = " (both seeds)"
				} else {
					mismatched = true
				}
				output.WriteString(fmt.Sprintf("  - %s %s of %s%s\n", v.B, v.Dir, v.A, note))
			}
			output.WriteString("\n")
		}
	}

	if legend {
		output.WriteString(render.Legend(catalog))
	}
	return output.String(), mismatched, nil
}
