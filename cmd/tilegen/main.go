package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/config"
	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/logger"
	"github.com/lawnchairsociety/tilegen/internal/render"
	"github.com/lawnchairsociety/tilegen/internal/store"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "data/tilegen.yaml", "Path to tilegen config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	catalogFile := flag.String("catalog", "", "Path to tile catalog YAML file (overrides config)")
	dim := flag.Int("dim", 0, "Grid side length (overrides config)")
	seed := flag.Int64("seed", 0, "Random seed (default: config, then random based on current time)")
	seedsFile := flag.String("seeds", "", "Map YAML file whose seed cells are placed before generation")
	outFile := flag.String("out", "", "Write the generated map YAML here (overrides config)")
	noRender := flag.Bool("no-render", false, "Do not print the ASCII map")
	transforms := flag.Bool("transforms", false, "Print the world transform of every placed tile")
	save := flag.Bool("save", false, "Save the map to the configured database")
	listMaps := flag.Int("list", 0, "List the N most recent stored maps and exit")
	showMap := flag.String("show", "", "Render a stored map by id and exit")
	deleteMap := flag.String("delete", "", "Delete a stored map by id and exit")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using default logging\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store maintenance commands run and exit
	if *listMaps > 0 || *showMap != "" || *deleteMap != "" {
		if err := runStoreCommand(ctx, cfg, *listMaps, *showMap, *deleteMap); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *catalogFile != "" {
		cfg.Generator.Catalog = *catalogFile
	}
	if *dim > 0 {
		cfg.Generator.Dim = *dim
	}
	if *seed != 0 {
		cfg.Generator.Seed = *seed
	}
	if *outFile != "" {
		cfg.Output.Path = *outFile
	}
	if *noRender {
		cfg.Output.Render = false
	}
	if *save {
		cfg.Storage.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	catalog, err := wfc.LoadCatalog(cfg.Generator.Catalog)
	if err != nil {
		log.Fatalf("Failed to load tile catalog: %v", err)
	}
	logger.Info("Tile catalog loaded", "path", cfg.Generator.Catalog, "tiles", catalog.Len())

	seeds := cfg.Generator.WFCSeeds()
	if *seedsFile != "" {
		m, err := export.LoadMapYAML(*seedsFile)
		if err != nil {
			log.Fatalf("Failed to load seed map: %v", err)
		}
		seeds = append(seeds, m.Seeds()...)
		logger.Info("Seed cells loaded", "path", *seedsFile, "count", len(m.Seeds()))
	}

	m, err := generate(ctx, cfg, catalog, seeds)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	if cfg.Output.Render {
		g, err := m.Grid()
		if err != nil {
			log.Fatalf("Failed to rebuild grid: %v", err)
		}
		fmt.Printf("Tile Map %dx%d (Seed: %d)\n", m.Dim, m.Dim, m.Seed)
		fmt.Printf("Filled: %d, failed: %d, steps: %d\n", m.Filled, m.Failed, m.Steps)
		fmt.Print(render.ASCII(g, catalog, m.FailureCoords()))
		fmt.Println()
		fmt.Print(render.Legend(catalog))
	}

	if *transforms {
		g, err := m.Grid()
		if err != nil {
			log.Fatalf("Failed to rebuild grid: %v", err)
		}
		fmt.Printf("\nWorld placements (scale %.2f):\n", cfg.Output.Scale)
		for _, p := range render.Placements(g, cfg.Output.Scale) {
			fmt.Printf("  %-6s %-16s x=%8.2f z=%8.2f yaw=%5.1f\n",
				p.Coord.String(), p.TileID, p.Transform.X, p.Transform.Z, p.Transform.YawDegrees)
		}
	}

	if cfg.Output.Path != "" {
		if err := export.WriteMapYAML(m, cfg.Output.Path); err != nil {
			log.Fatalf("Failed to write map: %v", err)
		}
		logger.Info("Map written", "path", cfg.Output.Path)
	}

	if cfg.Storage.Enabled {
		st, err := store.Open(cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer st.Close()

		id, err := st.SaveMap(ctx, m)
		if err != nil {
			log.Fatalf("Failed to save map: %v", err)
		}
		logger.Info("Map saved", "id", id, "driver", cfg.Storage.Driver)
		fmt.Printf("Map saved with id %s\n", id)
	}
}

// generate runs one generation and logs where the map came out short
func generate(ctx context.Context, cfg *config.Config, catalog *wfc.Catalog, seeds []wfc.Seed) (*export.MapYAML, error) {
	opts := []wfc.Option{wfc.WithParallelSearch(cfg.Generator.ParallelWorkers)}
	if cfg.Generator.Seed != 0 {
		opts = append(opts, wfc.WithSeed(cfg.Generator.Seed))
	}
	gen, err := wfc.NewGenerator(catalog, cfg.Generator.Dim, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("Generation seed selected", "seed", gen.Seed(), "random", cfg.Generator.Seed == 0)

	started := time.Now()
	result, err := gen.Generate(ctx, seeds)
	if err != nil {
		return nil, err
	}

	logger.Info("Map generated",
		"dim", cfg.Generator.Dim,
		"steps", result.Steps,
		"placed", result.Placed,
		"seeded", result.Seeded,
		"failed", len(result.Failures),
		"elapsed", time.Since(started))
	for _, c := range result.Failures {
		logger.Debug("Cell left empty", "cell", c.String())
	}
	for _, v := range wfc.Validate(result.Grid, catalog) {
		if v.SeedPair {
			logger.Debug("Seed cells disagree", "a", v.A.String(), "b", v.B.String())
		} else {
			logger.Error("Generated cells disagree", "a", v.A.String(), "b", v.B.String())
		}
	}

	return export.FromResult(result, catalog, gen.Seed()), nil
}

func runStoreCommand(ctx context.Context, cfg *config.Config, list int, show, del string) error {
	st, err := store.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	switch {
	case del != "":
		if err := st.DeleteMap(ctx, del); err != nil {
			return err
		}
		fmt.Printf("Map %s deleted.\n", del)

	case show != "":
		m, err := st.LoadMap(ctx, show)
		if err != nil {
			return err
		}
		g, err := m.Grid()
		if err != nil {
			return err
		}
		catalog, err := wfc.LoadCatalog(cfg.Generator.Catalog)
		if err != nil {
			return fmt.Errorf("failed to load tile catalog: %w", err)
		}
		if fp := export.Fingerprint(catalog); fp != m.CatalogFingerprint {
			logger.Warning("Stored map was generated from a different catalog", "id", m.ID, "catalog", cfg.Generator.Catalog)
		}
		fmt.Printf("Tile Map %dx%d (Seed: %d)\n", m.Dim, m.Dim, m.Seed)
		fmt.Printf("Generated: %s\n", m.GeneratedAt.Format("2006-01-02 15:04:05"))
		fmt.Print(render.ASCII(g, catalog, m.FailureCoords()))
		fmt.Println()
		fmt.Print(render.Legend(catalog))

	default:
		maps, err := st.ListMaps(ctx, list)
		if err != nil {
			return err
		}
		if len(maps) == 0 {
			fmt.Println("No stored maps.")
			return nil
		}
		fmt.Printf("%-36s  %-19s  %5s  %20s  %6s  %6s\n", "ID", "GENERATED", "DIM", "SEED", "FILLED", "FAILED")
		fmt.Println(strings.Repeat("-", 101))
		for _, ms := range maps {
			fmt.Printf("%-36s  %-19s  %5d  %20d  %6d  %6d\n",
				ms.ID, ms.GeneratedAt.Format("2006-01-02 15:04:05"), ms.Dim, ms.Seed, ms.Filled, ms.Failed)
		}
	}
	return nil
}
