package main

import (
	"strings"
	"testing"

	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func testCatalog(t *testing.T) *wfc.Catalog {
	t.Helper()
	r := wfc.EdgeSet{wfc.ConnectorR}
	g := wfc.EdgeSet{wfc.ConnectorG}
	catalog, err := wfc.NewCatalog([]wfc.TileType{
		wfc.NewTileType("road", wfc.SymmetryFull, r, r, r, r),
		wfc.NewTileType("grass", wfc.SymmetryFull, g, g, g, g),
	})
	if err != nil {
		t.Fatal(err)
	}
	return catalog
}

func TestRenderMapConnected(t *testing.T) {
	m := &export.MapYAML{
		Dim:    2,
		Seed:   5,
		Filled: 2,
		Failed: 1,
		Cells: []export.CellYAML{
			{X: 0, Y: 0, Tile: "road"},
			{X: 1, Y: 0, Tile: "road"},
		},
		Failures: []export.CoordYAML{{X: 0, Y: 1}},
	}

	out, mismatched, err := renderMap(m, testCatalog(t), true, true)
	if err != nil {
		t.Fatal(err)
	}
	if mismatched {
		t.Error("connected map reported as mismatched")
	}
	for _, want := range []string{"Tile Map 2x2 (Seed: 5)", "All adjacent tiles connect.", "[!] Unsatisfiable", "[R] road"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "different catalog") {
		t.Error("map without fingerprint should not warn")
	}
}

func TestRenderMapMismatched(t *testing.T) {
	catalog := testCatalog(t)
	m := &export.MapYAML{
		Dim:                2,
		CatalogFingerprint: "stale",
		Cells: []export.CellYAML{
			{X: 0, Y: 0, Tile: "road", Seed: true},
			{X: 1, Y: 0, Tile: "grass", Seed: true},
			{X: 0, Y: 1, Tile: "grass"},
			{X: 1, Y: 1, Tile: "lava"},
		},
	}

	out, mismatched, err := renderMap(m, catalog, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if !mismatched {
		t.Error("generated mismatch not reported")
	}
	for _, want := range []string{
		"different catalog",
		"tiles missing from catalog: lava",
		"(1,0) east of (0,0) (both seeds)",
		"(0,1) north of (0,0)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Legend") {
		t.Error("legend printed when disabled")
	}
}

func TestRenderMapWithoutCheck(t *testing.T) {
	m := &export.MapYAML{Dim: 1, Cells: []export.CellYAML{{X: 0, Y: 0, Tile: "road"}}}

	out, mismatched, err := renderMap(m, testCatalog(t), false, false)
	if err != nil {
		t.Fatal(err)
	}
	if mismatched || strings.Contains(out, "connect") {
		t.Errorf("check output present when disabled:\n%s", out)
	}
}

func TestRenderMapInvalid(t *testing.T) {
	m := &export.MapYAML{Dim: 1, Cells: []export.CellYAML{{X: 3, Y: 0, Tile: "road"}}}
	if _, _, err := renderMap(m, testCatalog(t), false, false); err == nil {
		t.Error("expected error for cell outside the grid")
	}
}
