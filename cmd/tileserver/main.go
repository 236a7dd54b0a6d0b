package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/config"
	"github.com/lawnchairsociety/tilegen/internal/logger"
	"github.com/lawnchairsociety/tilegen/internal/server"
	"github.com/lawnchairsociety/tilegen/internal/store"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "data/tilegen.yaml", "Path to tilegen config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	catalogFile := flag.String("catalog", "", "Path to tile catalog YAML file (overrides config)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	save := flag.Bool("save", false, "Save every generated map to the configured database")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using default logging\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting tile map server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *catalogFile != "" {
		cfg.Generator.Catalog = *catalogFile
	}
	if *addr != "" {
		cfg.Server.Address = *addr
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

	srv := server.NewServer(cfg, catalog)

	if cfg.Storage.Enabled {
		st, err := store.Open(cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer st.Close()
		srv.SetStore(st)
		logger.Info("Map storage enabled", "driver", cfg.Storage.Driver)
	}

	origins := cfg.Server.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(origins) == 1 && origins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", origins)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		if err != nil {
			log.Fatalf("WebSocket server error: %v", err)
		}
		return
	}

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown did not complete cleanly", "error", err)
	}
	logger.Info("Server stopped")
}
