package render

import "github.com/lawnchairsociety/tilegen/internal/wfc"

// tileUnits is the world size of a tile at local scale 1
const tileUnits = 10

// Transform places one tile in a 3D scene. The grid lies on the X/Z plane;
// Y is up.
type Transform struct {
	X          float64
	Z          float64
	YawDegrees float64
}

// WorldTransform maps a cell and its orientation to a scene transform
func WorldTransform(c wfc.Coord, o wfc.Orientation, scale float64) Transform {
	return Transform{
		X:          float64(c.X) * scale,
		Z:          float64(c.Y) * scale,
		YawDegrees: o.Degrees(),
	}
}

// ScaleFromTileSize converts a tile model's local scale to the distance
// between neighbouring cells.
func ScaleFromTileSize(localScale float64) float64 {
	return localScale * tileUnits
}

// Placement pairs a filled cell with its scene transform
type Placement struct {
	wfc.Placement
	Transform Transform
}

// Placements returns a transform for every filled cell, sorted by Y then X
func Placements(g *wfc.Grid, scale float64) []Placement {
	cells := g.Placements()
	out := make([]Placement, 0, len(cells))
	for _, p := range cells {
		out = append(out, Placement{
			Placement: p,
			Transform: WorldTransform(p.Coord, p.Orientation, scale),
		})
	}
	return out
}
