package wfc

import "strings"

// Direction represents a cardinal direction in the grid. The numeric value
// doubles as the edge slot of a tile: North is the top edge, East the right,
// South the bottom and West the left.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	default:
		return d
	}
}

// Offset returns the coordinate delta for one step in the direction.
// North grows y.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

// AllDirections returns all four cardinal directions in edge-slot order
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// ScanOrder returns the order neighbours are discovered in: up, down, right, left.
func ScanOrder() []Direction {
	return []Direction{North, South, East, West}
}

// SymmetryClass describes how many rotations of a tile are distinct.
type SymmetryClass int

const (
	SymmetryInvalid    SymmetryClass = iota - 1
	SymmetryFull                     // all four edges alike
	SymmetryBilateral                // top matches bottom, left matches right
	SymmetryAsymmetric               // every rotation may differ
)

// String returns the string representation of a SymmetryClass
func (s SymmetryClass) String() string {
	switch s {
	case SymmetryFull:
		return "full"
	case SymmetryBilateral:
		return "bilateral"
	case SymmetryAsymmetric:
		return "asymmetric"
	default:
		return "invalid"
	}
}

// ParseSymmetry converts a catalog name to a SymmetryClass. Unknown names map
// to SymmetryInvalid, which searches all four rotations.
func ParseSymmetry(s string) SymmetryClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "equilateral", "equilat":
		return SymmetryFull
	case "bilateral", "isosceles", "isoscel":
		return SymmetryBilateral
	case "asymmetric", "scalene":
		return SymmetryAsymmetric
	default:
		return SymmetryInvalid
	}
}

// AllowedRotations returns how many rotation states are tried during
// candidate search.
func (s SymmetryClass) AllowedRotations() int {
	switch s {
	case SymmetryFull:
		return 1
	case SymmetryBilateral:
		return 2
	default:
		return 4
	}
}

// TileType is an immutable catalog entry: a symmetry class plus the edge sets
// of its unrotated orientation, indexed by Direction.
type TileType struct {
	ID       string
	Symmetry SymmetryClass
	Edges    [4]EdgeSet
}

// NewTileType creates a tile type from its top, right, bottom and left edges
func NewTileType(id string, symmetry SymmetryClass, top, right, bottom, left EdgeSet) TileType {
	return TileType{
		ID:       id,
		Symmetry: symmetry,
		Edges:    [4]EdgeSet{top.Clone(), right.Clone(), bottom.Clone(), left.Clone()},
	}
}

// Edge returns the unrotated edge on the given side
func (t TileType) Edge(dir Direction) EdgeSet {
	return t.Edges[dir]
}

func (t TileType) clone() TileType {
	out := t
	for i := range t.Edges {
		out.Edges[i] = t.Edges[i].Clone()
	}
	return out
}

// Orientation is the number of 90 degree steps applied to a tile type.
type Orientation int

// Normalize reduces o into [0,4)
func (o Orientation) Normalize() Orientation {
	return ((o % 4) + 4) % 4
}

// Degrees returns the yaw a renderer applies for this orientation
func (o Orientation) Degrees() float64 {
	return 90 * float64(o.Normalize())
}

// PlacedTile is the content of a filled cell. It is written once and never
// changed afterwards.
type PlacedTile struct {
	TileID      string
	Orientation Orientation
	Seed        bool // supplied by the caller rather than chosen by the generator
}
