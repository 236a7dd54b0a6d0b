package wfc

// RotatedEdges holds the four edge sets of a tile type in one orientation,
// indexed by Direction. The sets alias the catalog entry and must not be
// modified.
type RotatedEdges [4]EdgeSet

// Edge returns the edge facing dir
func (r RotatedEdges) Edge(dir Direction) EdgeSet {
	return r[dir]
}

// Step rotates the edges one quarter turn: the old left edge becomes the top,
// the old bottom the left, the old right the bottom and the old top the right.
func (r RotatedEdges) Step() RotatedEdges {
	return RotatedEdges{
		North: r[West],
		East:  r[North],
		South: r[East],
		West:  r[South],
	}
}

// Rotate returns the edges of t after n quarter turns. n is taken mod 4, so
// Rotate(t, 4) equals Rotate(t, 0). The tile type is not modified.
func Rotate(t TileType, n Orientation) RotatedEdges {
	r := RotatedEdges(t.Edges)
	for i := Orientation(0); i < n.Normalize(); i++ {
		r = r.Step()
	}
	return r
}

// EdgesOf returns the edges a placed tile exposes
func (c *Catalog) EdgesOf(p PlacedTile) (RotatedEdges, bool) {
	t, ok := c.Lookup(p.TileID)
	if !ok {
		return RotatedEdges{}, false
	}
	return Rotate(t, p.Orientation), true
}
