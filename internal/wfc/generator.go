package wfc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Random is the source of every random choice the generator makes.
// *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// Observer receives per-cell events while a map is generated. Calls happen
// on the generating goroutine, in processing order.
type Observer interface {
	CellPlaced(p Placement)
	CellFailed(c Coord)
}

// Seed is a tile the caller places before generation starts.
type Seed struct {
	Coord
	TileID      string
	Orientation Orientation
}

// Candidate is a tile type in a rotation that fits every filled neighbour of
// a cell.
type Candidate struct {
	TileID      string
	Orientation Orientation
}

// Result is the output of one generation run
type Result struct {
	Grid     *Grid
	Failures []Coord // cells left empty, in processing order
	Steps    int     // cells taken off the open list
	Placed   int     // tiles chosen by the generator, including a seedless start tile
	Seeded   int     // tiles supplied by the caller
}

// Option configures a Generator
type Option func(*Generator)

// WithRandom sets the random source
func WithRandom(r Random) Option {
	return func(g *Generator) {
		g.rng = r
	}
}

// WithSeed uses a math/rand source seeded with seed, making runs reproducible
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithObserver registers an observer for placement and failure events
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		g.observer = o
	}
}

// WithParallelSearch evaluates tile types concurrently when building a cell's
// candidate list. Values below 2 keep the search on one goroutine.
func WithParallelSearch(workers int) Option {
	return func(g *Generator) {
		g.workers = workers
	}
}

// Generator fills a grid by expanding outward from seed tiles, placing at
// each cell a random tile whose edges fit all filled neighbours.
type Generator struct {
	catalog  *Catalog
	dim      int
	seed     int64
	rng      Random
	observer Observer
	workers  int
}

// NewGenerator creates a generator for a dim x dim grid
func NewGenerator(catalog *Catalog, dim int, opts ...Option) (*Generator, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, ErrCatalogEmpty
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, dim)
	}

	g := &Generator{
		catalog: catalog,
		dim:     dim,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.seed = time.Now().UnixNano()
		g.rng = rand.New(rand.NewSource(g.seed))
	}
	return g, nil
}

// Seed returns the seed of the built-in random source. It is meaningless when
// a source was supplied with WithRandom.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Generate runs one generation pass. Cells with no fitting candidate are left
// empty and reported in Result.Failures; they never abort the run. The
// returned error covers invalid seeds, cancellation and internal faults.
func (g *Generator) Generate(ctx context.Context, seeds []Seed) (*Result, error) {
	grid, err := NewGrid(g.dim)
	if err != nil {
		return nil, err
	}
	result := &Result{Grid: grid}

	origins, err := g.placeSeeds(grid, seeds, result)
	if err != nil {
		return nil, err
	}

	frontier := NewFrontier()
	for _, c := range origins {
		frontier.DiscoverOpen(c, grid)
	}

	for frontier.OpenLen() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, _ := frontier.Pop()
		target := entry.Target
		result.Steps++

		candidates := g.Candidates(target, grid)
		if len(candidates) == 0 {
			result.Failures = append(result.Failures, target)
			logger.Warning("Cell unsatisfiable",
				"x", target.X,
				"y", target.Y,
				"neighbors", len(DiscoverClosed(target, grid)))
			if g.observer != nil {
				g.observer.CellFailed(target)
			}
		} else {
			choice := candidates[g.rng.Intn(len(candidates))]
			if err := g.place(grid, target, PlacedTile{TileID: choice.TileID, Orientation: choice.Orientation}); err != nil {
				logger.Error("Frontier bookkeeping fault", "x", target.X, "y", target.Y, "error", err)
				return nil, fmt.Errorf("internal invariant violated: %w", err)
			}
			result.Placed++
		}

		frontier.Close(entry.Index)
		frontier.DiscoverOpen(target, grid)
	}

	logger.Debug("Generation finished",
		"dim", g.dim,
		"steps", result.Steps,
		"placed", result.Placed,
		"seeded", result.Seeded,
		"failed", len(result.Failures))

	return result, nil
}

// placeSeeds writes the caller's seeds, or one random tile at (0,0) when there
// are none, and returns the coordinates expansion starts from.
func (g *Generator) placeSeeds(grid *Grid, seeds []Seed, result *Result) ([]Coord, error) {
	if len(seeds) == 0 {
		start := Coord{X: 0, Y: 0}
		t := g.catalog.At(g.rng.Intn(g.catalog.Len()))
		if err := g.place(grid, start, PlacedTile{TileID: t.ID}); err != nil {
			return nil, err
		}
		result.Placed++
		return []Coord{start}, nil
	}

	origins := make([]Coord, 0, len(seeds))
	for _, s := range seeds {
		if !grid.InBounds(s.Coord) {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidSeed, s.Coord, ErrOutOfBounds)
		}
		if _, ok := g.catalog.Lookup(s.TileID); !ok {
			return nil, fmt.Errorf("%w %s: %w: %q", ErrInvalidSeed, s.Coord, ErrUnknownTile, s.TileID)
		}
		tile := PlacedTile{TileID: s.TileID, Orientation: s.Orientation, Seed: true}
		if err := g.place(grid, s.Coord, tile); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidSeed, s.Coord, err)
		}
		result.Seeded++
		origins = append(origins, s.Coord)
	}
	return origins, nil
}

func (g *Generator) place(grid *Grid, c Coord, tile PlacedTile) error {
	if err := grid.Set(grid.Index(c), tile); err != nil {
		return err
	}
	if g.observer != nil {
		g.observer.CellPlaced(Placement{Coord: c, PlacedTile: *grid.At(c)})
	}
	return nil
}

// facing is the edge of a filled neighbour that a candidate must match.
type facing struct {
	dir  Direction // from the candidate cell towards the neighbour
	edge EdgeSet
}

// Candidates returns every tile type and rotation that fits all filled
// neighbours of target, in catalog then rotation order.
func (g *Generator) Candidates(target Coord, grid *Grid) []Candidate {
	neighbors := DiscoverClosed(target, grid)
	constraints := make([]facing, 0, len(neighbors))
	for _, n := range neighbors {
		edges, ok := g.catalog.EdgesOf(*grid.Get(n.Index))
		if !ok {
			// Only seeds can carry ids and those are checked on ingestion.
			continue
		}
		constraints = append(constraints, facing{dir: n.Dir, edge: edges.Edge(n.Dir.Opposite())})
	}

	if g.workers < 2 {
		var out []Candidate
		for i := 0; i < g.catalog.Len(); i++ {
			out = append(out, candidatesFor(g.catalog.At(i), constraints)...)
		}
		return out
	}

	slots := make([][]Candidate, g.catalog.Len())
	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i := 0; i < g.catalog.Len(); i++ {
		eg.Go(func() error {
			slots[i] = candidatesFor(g.catalog.At(i), constraints)
			return nil
		})
	}
	_ = eg.Wait()

	var out []Candidate
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}

func candidatesFor(t TileType, constraints []facing) []Candidate {
	var out []Candidate
	for r := 0; r < t.Symmetry.AllowedRotations(); r++ {
		edges := Rotate(t, Orientation(r))
		if fits(edges, constraints) {
			out = append(out, Candidate{TileID: t.ID, Orientation: Orientation(r)})
		}
	}
	return out
}

func fits(edges RotatedEdges, constraints []facing) bool {
	for _, c := range constraints {
		if !Compatible(edges.Edge(c.dir), c.edge) {
			return false
		}
	}
	return true
}
