package wfc

import (
	"fmt"
	"sort"
)

// Coord is a grid coordinate. (0,0) is the corner the generator starts from
// when no seeds are supplied.
type Coord struct {
	X, Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Step returns the neighbouring coordinate in dir. The result may lie outside
// the grid.
func (c Coord) Step(dir Direction) Coord {
	dx, dy := dir.Offset()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Grid is a dim x dim map of write-once cells stored row-major.
type Grid struct {
	dim   int
	cells []*PlacedTile
}

// NewGrid creates an empty square grid
func NewGrid(dim int) (*Grid, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, dim)
	}
	return &Grid{
		dim:   dim,
		cells: make([]*PlacedTile, dim*dim),
	}, nil
}

// Dim returns the side length of the grid
func (g *Grid) Dim() int {
	return g.dim
}

// Len returns the number of cells
func (g *Grid) Len() int {
	return len(g.cells)
}

// InBounds reports whether c lies inside the grid
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.dim && c.Y >= 0 && c.Y < g.dim
}

// Index maps a coordinate to its linear index x + y*dim. Callers must check
// InBounds first; out-of-range coordinates do not wrap.
func (g *Grid) Index(c Coord) int {
	return c.X + c.Y*g.dim
}

// Coord is the inverse of Index
func (g *Grid) Coord(index int) Coord {
	return Coord{X: index % g.dim, Y: index / g.dim}
}

// Get returns the tile at index, or nil if the cell is empty
func (g *Grid) Get(index int) *PlacedTile {
	if index < 0 || index >= len(g.cells) {
		return nil
	}
	if p := g.cells[index]; p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// At returns the tile at c, or nil if the cell is empty or outside the grid
func (g *Grid) At(c Coord) *PlacedTile {
	if !g.InBounds(c) {
		return nil
	}
	return g.Get(g.Index(c))
}

// Occupied reports whether the cell at index holds a tile
func (g *Grid) Occupied(index int) bool {
	return index >= 0 && index < len(g.cells) && g.cells[index] != nil
}

// Set writes a tile into an empty cell. Cells are write-once.
func (g *Grid) Set(index int, tile PlacedTile) error {
	if index < 0 || index >= len(g.cells) {
		return fmt.Errorf("%w: index %d", ErrOutOfBounds, index)
	}
	if g.cells[index] != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateAssignment, g.Coord(index))
	}
	tile.Orientation = tile.Orientation.Normalize()
	g.cells[index] = &tile
	return nil
}

// Filled returns the number of occupied cells
func (g *Grid) Filled() int {
	n := 0
	for _, p := range g.cells {
		if p != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every occupied cell in index order
func (g *Grid) Each(fn func(c Coord, p PlacedTile)) {
	for i, p := range g.cells {
		if p != nil {
			fn(g.Coord(i), *p)
		}
	}
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	out := &Grid{dim: g.dim, cells: make([]*PlacedTile, len(g.cells))}
	for i, p := range g.cells {
		if p != nil {
			cp := *p
			out.cells[i] = &cp
		}
	}
	return out
}

// Placement is a filled cell together with its coordinate.
type Placement struct {
	Coord
	PlacedTile
}

// Placements returns all filled cells sorted by Y then X
func (g *Grid) Placements() []Placement {
	var out []Placement
	g.Each(func(c Coord, p PlacedTile) {
		out = append(out, Placement{Coord: c, PlacedTile: p})
	})
	SortPlacements(out)
	return out
}

// SortPlacements sorts placements by Y then X for deterministic output
func SortPlacements(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].X < ps[j].X
	})
}
