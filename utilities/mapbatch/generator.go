package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
	"golang.org/x/sync/errgroup"
)

// BatchGenerator generates one map per seed and optionally writes each to YAML
type BatchGenerator struct {
	Catalog   *wfc.Catalog
	Dim       int
	OutputDir string
}

// NewBatchGenerator creates a new batch generator
func NewBatchGenerator(catalog *wfc.Catalog, dim int, outputDir string) *BatchGenerator {
	return &BatchGenerator{
		Catalog:   catalog,
		Dim:       dim,
		OutputDir: outputDir,
	}
}

// MapStats describes one generated map
type MapStats struct {
	Seed   int64
	Filled int
	Failed int
	Steps  int
}

// FillRate is the share of cells that received a tile
func (s MapStats) FillRate() float64 {
	total := s.Filled + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Filled) / float64(total)
}

// GenerateMap generates the map for seed and writes it when OutputDir is set
func (g *BatchGenerator) GenerateMap(ctx context.Context, seed int64) (MapStats, error) {
	gen, err := wfc.NewGenerator(g.Catalog, g.Dim, wfc.WithSeed(seed))
	if err != nil {
		return MapStats{}, err
	}
	result, err := gen.Generate(ctx, nil)
	if err != nil {
		return MapStats{}, fmt.Errorf("seed %d: %w", seed, err)
	}

	if g.OutputDir != "" {
		path := filepath.Join(g.OutputDir, fmt.Sprintf("map_%d.yaml", seed))
		if err := export.WriteMapYAML(export.FromResult(result, g.Catalog, seed), path); err != nil {
			return MapStats{}, fmt.Errorf("failed to write YAML: %w", err)
		}
	}

	return MapStats{
		Seed:   seed,
		Filled: result.Grid.Filled(),
		Failed: len(result.Failures),
		Steps:  result.Steps,
	}, nil
}

// GenerateRange generates seeds first..last with up to workers maps in
// flight. Results are ordered by seed; the first error stops the batch.
func (g *BatchGenerator) GenerateRange(ctx context.Context, first, last int64, workers int) ([]MapStats, error) {
	stats := make([]MapStats, last-first+1)

	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for seed := first; seed <= last; seed++ {
		eg.Go(func() error {
			s, err := g.GenerateMap(ctx, seed)
			if err != nil {
				return err
			}
			stats[seed-first] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// BatchSummary aggregates a batch
type BatchSummary struct {
	Maps         int
	Complete     int // maps without a failed cell
	MinFillRate  float64
	MeanFillRate float64
	worst        []int64
}

// Summarize aggregates stats
func Summarize(stats []MapStats) *BatchSummary {
	s := &BatchSummary{Maps: len(stats), MinFillRate: 1}
	if len(stats) == 0 {
		s.MinFillRate = 0
		return s
	}
	var total float64
	for _, m := range stats {
		rate := m.FillRate()
		total += rate
		if m.Failed == 0 {
			s.Complete++
		}
		switch {
		case rate < s.MinFillRate:
			s.MinFillRate = rate
			s.worst = []int64{m.Seed}
		case rate == s.MinFillRate:
			s.worst = append(s.worst, m.Seed)
		}
	}
	s.MeanFillRate = total / float64(len(stats))
	return s
}

// WorstSeeds returns the seeds that share the lowest fill rate
func (s *BatchSummary) WorstSeeds() []int64 {
	return s.worst
}

func (s *BatchSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Maps: %d | Complete: %d | Mean fill: %.1f%% | Min fill: %.1f%%\n",
		s.Maps, s.Complete, 100*s.MeanFillRate, 100*s.MinFillRate)
	if s.Complete < s.Maps && len(s.worst) > 0 {
		seeds := make([]string, len(s.worst))
		for i, seed := range s.worst {
			seeds[i] = fmt.Sprint(seed)
		}
		fmt.Fprintf(&b, "Lowest fill seeds: %s\n", strings.Join(seeds, ", "))
	}
	return b.String()
}
