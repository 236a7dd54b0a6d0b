package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Generator.Dim != 5 {
		t.Errorf("expected dim 5, got %d", cfg.Generator.Dim)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Server.WebSocket.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/tilegen.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Generator.Catalog != "data/tiles.yaml" {
		t.Errorf("expected default catalog path, got %q", cfg.Generator.Catalog)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tilegen.yaml")

	content := `
generator:
  dim: 12
  seed: 99
  catalog: tiles/basic.yaml
  parallel_workers: 4
  seeds:
    - {x: 1, y: 2, tile: cross}
    - {x: 0, y: 0, tile: corner, orientation: 3}
output:
  path: out/map.yaml
  render: false
storage:
  enabled: true
  driver: postgres
  postgres:
    host: db
    conn_max_lifetime: 90s
server:
  max_dim: 32
  websocket:
    allowed_origins:
      - "https://example.com"
      - "http://localhost:3000"
    max_message_size: 8192
  throttle:
    enabled: false
    max_requests: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generator.Dim != 12 || cfg.Generator.Seed != 99 {
		t.Errorf("expected dim 12 seed 99, got %d %d", cfg.Generator.Dim, cfg.Generator.Seed)
	}
	if cfg.Generator.ParallelWorkers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Generator.ParallelWorkers)
	}
	if cfg.Output.Render {
		t.Error("expected render disabled")
	}
	if cfg.Output.Scale != 10 {
		t.Errorf("expected default scale 10 to survive, got %v", cfg.Output.Scale)
	}
	if cfg.Storage.Postgres.Host != "db" || cfg.Storage.Postgres.Port != 5432 {
		t.Errorf("expected host db with default port, got %s:%d", cfg.Storage.Postgres.Host, cfg.Storage.Postgres.Port)
	}
	if cfg.Storage.Postgres.ConnMaxLifetime != 90*time.Second {
		t.Errorf("expected 90s lifetime, got %v", cfg.Storage.Postgres.ConnMaxLifetime)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.Server.WebSocket.AllowedOrigins))
	}
	if cfg.Server.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}
	if th := cfg.Server.Throttle; th.Enabled || th.MaxRequests != 3 || th.TimeWindowSeconds != 10 {
		t.Errorf("expected throttle disabled with 3 requests per default window, got %+v", th)
	}

	seeds := cfg.Generator.WFCSeeds()
	want := []wfc.Seed{
		{Coord: wfc.Coord{X: 1, Y: 2}, TileID: "cross"},
		{Coord: wfc.Coord{X: 0, Y: 0}, TileID: "corner", Orientation: 3},
	}
	if len(seeds) != len(want) {
		t.Fatalf("expected %d seeds, got %d", len(want), len(seeds))
	}
	for i := range want {
		if seeds[i] != want[i] {
			t.Errorf("seed %d = %+v, want %+v", i, seeds[i], want[i])
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate, got %v", err)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tilegen.yaml")
	if err := os.WriteFile(configPath, []byte("generator: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
	if cfg.Generator.Dim != 5 {
		t.Errorf("expected defaults returned with the error, got dim %d", cfg.Generator.Dim)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TILEGEN_DIM", "20")
	t.Setenv("TILEGEN_SEED", "-7")
	t.Setenv("TILEGEN_CATALOG", "env/tiles.yaml")
	t.Setenv("TILEGEN_DB_DRIVER", "postgres")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generator.Dim != 20 || cfg.Generator.Seed != -7 {
		t.Errorf("expected dim 20 seed -7, got %d %d", cfg.Generator.Dim, cfg.Generator.Seed)
	}
	if cfg.Generator.Catalog != "env/tiles.yaml" {
		t.Errorf("expected catalog from env, got %q", cfg.Generator.Catalog)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("expected postgres driver from env, got %q", cfg.Storage.Driver)
	}

	t.Setenv("TILEGEN_DIM", "lots")
	if _, err := LoadConfig(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for bad TILEGEN_DIM, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dim", func(c *Config) { c.Generator.Dim = 0 }},
		{"no catalog", func(c *Config) { c.Generator.Catalog = " " }},
		{"negative workers", func(c *Config) { c.Generator.ParallelWorkers = -1 }},
		{"seed outside grid", func(c *Config) { c.Generator.Seeds = []SeedConfig{{X: 5, Y: 0, Tile: "a"}} }},
		{"seed negative", func(c *Config) { c.Generator.Seeds = []SeedConfig{{X: 0, Y: -1, Tile: "a"}} }},
		{"seed without tile", func(c *Config) { c.Generator.Seeds = []SeedConfig{{X: 0, Y: 0}} }},
		{"unknown driver", func(c *Config) { c.Storage.Enabled = true; c.Storage.Driver = "mysql" }},
		{"zero max dim", func(c *Config) { c.Server.MaxDim = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	// An unknown driver is fine while storage is off
	cfg := DefaultConfig()
	cfg.Storage.Driver = "mysql"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with storage disabled = %v, want nil", err)
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {

	cfg := WebSocketConfig{
		AllowedOrigins: []string{},
	}

	// Same origin (no Origin header)
	if !cfg.IsOriginAllowed("", "localhost:4480") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}

	// Same origin (matching host)
	if !cfg.IsOriginAllowed("http://localhost:4480", "localhost:4480") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}

	// Different origin should be rejected
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4480") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_Wildcard(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{"*"},
	}

	// Wildcard allows everything
	if !cfg.IsOriginAllowed("http://anything.com", "localhost:4480") {
		t.Error("expected wildcard to allow any origin")
	}

	if !cfg.IsOriginAllowed("", "localhost:4480") {
		t.Error("expected wildcard to allow empty origin")
	}
}

func TestIsOriginAllowed_ExactMatch(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{
			"https://example.com",
			"http://localhost:3000",
		},
	}

	// Exact matches
	if !cfg.IsOriginAllowed("https://example.com", "localhost:4480") {
		t.Error("expected exact match to be allowed")
	}

	if !cfg.IsOriginAllowed("http://localhost:3000", "localhost:4480") {
		t.Error("expected exact match to be allowed")
	}

	// Non-matching origin
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4480") {
		t.Error("expected non-matching origin to be rejected")
	}

	// Partial match should not work
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:4480") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:4480", true},                                // No origin header
		{"http://localhost:4480", "localhost:4480", true},           // HTTP match
		{"https://localhost:4480", "localhost:4480", true},          // HTTPS match
		{"http://localhost:4480/", "localhost:4480", true},          // Trailing slash
		{"http://example.com", "localhost:4480", false},             // Different host
		{"http://localhost:3000", "localhost:4480", false},          // Different port
		{"ws://localhost:4480", "localhost:4480", true},             // WebSocket scheme
	}

	for _, tt := range tests {
		result := isSameOrigin(tt.origin, tt.requestHost)
		if result != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v",
				tt.origin, tt.requestHost, result, tt.expected)
		}
	}
}
