package wfc

import (
	"reflect"
	"testing"
)

func asymmetricTile() TileType {
	return NewTileType("asym", SymmetryAsymmetric,
		EdgeSet{ConnectorR},
		EdgeSet{ConnectorG},
		EdgeSet{ConnectorB},
		EdgeSet{ConnectorR, ConnectorG},
	)
}

func TestRotateStepLaw(t *testing.T) {
	tile := asymmetricTile()
	r := Rotate(tile, 1)

	// new top <- old left, new left <- old bottom,
	// new bottom <- old right, new right <- old top
	checks := []struct {
		side Direction
		want EdgeSet
	}{
		{North, tile.Edge(West)},
		{West, tile.Edge(South)},
		{South, tile.Edge(East)},
		{East, tile.Edge(North)},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(r.Edge(c.side), c.want) {
			t.Errorf("Rotate(t,1).Edge(%s) = %s, want %s", c.side, r.Edge(c.side), c.want)
		}
	}
}

func TestRotateGroupLaw(t *testing.T) {
	tile := asymmetricTile()
	zero := Rotate(tile, 0)

	if !reflect.DeepEqual(zero, RotatedEdges(tile.Edges)) {
		t.Errorf("Rotate(t,0) = %v, want canonical edges %v", zero, tile.Edges)
	}
	for _, n := range []Orientation{4, 8, -4} {
		if got := Rotate(tile, n); !reflect.DeepEqual(got, zero) {
			t.Errorf("Rotate(t,%d) = %v, want %v", n, got, zero)
		}
	}

	stepped := zero
	for i := 0; i < 4; i++ {
		stepped = stepped.Step()
	}
	if !reflect.DeepEqual(stepped, zero) {
		t.Errorf("four single steps = %v, want %v", stepped, zero)
	}

	// Rotate(t,n) agrees with n single steps
	stepped = zero
	for n := Orientation(0); n < 4; n++ {
		if got := Rotate(tile, n); !reflect.DeepEqual(got, stepped) {
			t.Errorf("Rotate(t,%d) = %v, want %v", n, got, stepped)
		}
		stepped = stepped.Step()
	}
}

func TestRotateDoesNotMutate(t *testing.T) {
	tile := asymmetricTile()
	before := tile.clone()
	for n := Orientation(0); n < 8; n++ {
		Rotate(tile, n)
	}
	if !reflect.DeepEqual(tile, before) {
		t.Errorf("Rotate mutated the tile type: %v, want %v", tile, before)
	}
}

func TestFullSymmetryRotationsIdentical(t *testing.T) {
	tile := NewTileType("full", SymmetryFull,
		EdgeSet{ConnectorR, ConnectorB},
		EdgeSet{ConnectorR, ConnectorB},
		EdgeSet{ConnectorR, ConnectorB},
		EdgeSet{ConnectorR, ConnectorB},
	)
	zero := Rotate(tile, 0)
	for n := Orientation(1); n < 4; n++ {
		if got := Rotate(tile, n); !reflect.DeepEqual(got, zero) {
			t.Errorf("full symmetry rotation %d = %v, want %v", n, got, zero)
		}
	}
}

func TestBilateralHalfTurn(t *testing.T) {
	// top matches bottom and left matches right
	tile := NewTileType("straight", SymmetryBilateral,
		EdgeSet{ConnectorR},
		EdgeSet{ConnectorG},
		EdgeSet{ConnectorR},
		EdgeSet{ConnectorG},
	)
	zero := Rotate(tile, 0)
	half := Rotate(tile, 2)

	// Two steps swap top with bottom and left with right
	if !reflect.DeepEqual(half.Edge(North), zero.Edge(South)) || !reflect.DeepEqual(half.Edge(East), zero.Edge(West)) {
		t.Errorf("half turn = %v, want top/bottom and left/right swapped from %v", half, zero)
	}
	if !reflect.DeepEqual(half, zero) {
		t.Errorf("bilateral tile half turn = %v, want %v", half, zero)
	}
	if reflect.DeepEqual(Rotate(tile, 1), zero) {
		t.Error("quarter turn of a bilateral tile should differ from rotation 0")
	}
}
