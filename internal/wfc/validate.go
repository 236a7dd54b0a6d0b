package wfc

// Violation is a pair of adjacent filled cells whose facing edges share no
// connector.
type Violation struct {
	A, B     Coord
	Dir      Direction // from A towards B
	SeedPair bool      // both cells were supplied as seeds
	Seeded   bool      // at least one cell was supplied as a seed
}

// Validate returns every incompatible adjacent pair in the grid. Each pair is
// reported once, scanning east and north from each cell. Tiles whose id is
// missing from the catalog are skipped.
func Validate(g *Grid, c *Catalog) []Violation {
	var out []Violation
	g.Each(func(a Coord, pa PlacedTile) {
		edgesA, ok := c.EdgesOf(pa)
		if !ok {
			return
		}
		for _, dir := range []Direction{East, North} {
			b := a.Step(dir)
			pb := g.At(b)
			if pb == nil {
				continue
			}
			edgesB, ok := c.EdgesOf(*pb)
			if !ok {
				continue
			}
			if Compatible(edgesA.Edge(dir), edgesB.Edge(dir.Opposite())) {
				continue
			}
			out = append(out, Violation{
				A:        a,
				B:        b,
				Dir:      dir,
				SeedPair: pa.Seed && pb.Seed,
				Seeded:   pa.Seed || pb.Seed,
			})
		}
	})
	return out
}

// GeneratedViolations drops pairs made of two seeds. Seeds are written
// without any fit check against each other; every other pair had one side
// checked against the other when it was placed.
func GeneratedViolations(vs []Violation) []Violation {
	var out []Violation
	for _, v := range vs {
		if !v.SeedPair {
			out = append(out, v)
		}
	}
	return out
}
