package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func main() {
	catalogFile := flag.String("catalog", "data/tiles.yaml", "Path to tile catalog YAML file")
	dim := flag.Int("dim", 8, "Grid side length")
	seeds := flag.String("seeds", "", "Seed range to generate (e.g., 1-25 or 5)")
	outDir := flag.String("out", "", "Output directory (empty: report statistics only)")
	workers := flag.Int("workers", 4, "Maps generated concurrently")
	flag.Parse()

	if *seeds == "" {
		fmt.Fprintln(os.Stderr, "Error: --seeds is required (e.g., --seeds=1-25 or --seeds=5)")
		flag.Usage()
		os.Exit(1)
	}

	// Parse seed range
	first, last, err := parseSeedRange(*seeds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid seed range: %v\n", err)
		os.Exit(1)
	}

	catalog, err := wfc.LoadCatalog(*catalogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create output directory if it doesn't exist
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create output directory: %v\n", err)
			os.Exit(1)
		}
	}

	gen := NewBatchGenerator(catalog, *dim, *outDir)

	fmt.Printf("Generating %dx%d maps for seeds %d-%d from %s (%d tiles)\n", *dim, *dim, first, last, *catalogFile, catalog.Len())
	if *outDir != "" {
		fmt.Printf("Output directory: %s\n", *outDir)
	}
	fmt.Println()

	stats, err := gen.GenerateRange(context.Background(), first, last, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		os.Exit(1)
	}

	for _, s := range stats {
		fmt.Printf("Seed %-8d filled %4d  failed %4d  (%5.1f%%)\n", s.Seed, s.Filled, s.Failed, 100*s.FillRate())
	}
	fmt.Println()
	fmt.Print(Summarize(stats).String())
}

// parseSeedRange parses a seed range string like "1-25" or "5"
func parseSeedRange(s string) (first, last int64, err error) {
	if before, after, ok := strings.Cut(s, "-"); ok {
		first, err = strconv.ParseInt(strings.TrimSpace(before), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid first seed: %w", err)
		}
		last, err = strconv.ParseInt(strings.TrimSpace(after), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid last seed: %w", err)
		}
	} else {
		first, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid seed: %w", err)
		}
		last = first
	}

	if first == 0 {
		return 0, 0, fmt.Errorf("seed 0 means a clock seed and cannot be reproduced")
	}
	if last < first {
		return 0, 0, fmt.Errorf("last seed must be >= first seed")
	}

	return first, last, nil
}
