// Package config loads the YAML settings shared by the tilegen CLI and the
// streaming server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds every tilegen setting.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// GeneratorConfig holds the inputs of a generation run.
type GeneratorConfig struct {
	// Dim is the side length of the square grid.
	Dim int `yaml:"dim"`

	// Seed drives the random source. 0 picks a seed from the clock.
	Seed int64 `yaml:"seed"`

	// Catalog is the path of the tile catalog YAML file.
	Catalog string `yaml:"catalog"`

	// Seeds are tiles placed before generation starts.
	Seeds []SeedConfig `yaml:"seeds"`

	// ParallelWorkers bounds the goroutines used for candidate search.
	// 0 or 1 searches serially.
	ParallelWorkers int `yaml:"parallel_workers"`
}

// SeedConfig is one pre-placed tile.
type SeedConfig struct {
	X           int    `yaml:"x"`
	Y           int    `yaml:"y"`
	Tile        string `yaml:"tile"`
	Orientation int    `yaml:"orientation"`
}

// OutputConfig controls what the CLI writes after a run.
type OutputConfig struct {
	// Path of the map YAML file. Empty skips the export.
	Path string `yaml:"path"`

	// Render prints an ASCII view of the map.
	Render bool `yaml:"render"`

	// Scale is the world size of one tile, used for placement transforms.
	Scale float64 `yaml:"scale"`
}

// StorageConfig selects where finished maps are persisted.
type StorageConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig holds settings for the streaming server.
type ServerConfig struct {
	// Address the HTTP listener binds to.
	Address string `yaml:"address"`

	// MaxDim is the largest grid a client may request.
	MaxDim int `yaml:"max_dim"`

	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Throttle    ThrottleConfig    `yaml:"throttle"`
}

// ThrottleConfig limits how many generations one connection may start.
type ThrottleConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxRequests allowed per connection within the window.
	MaxRequests int `yaml:"max_requests"`

	// TimeWindowSeconds is the length of the sliding window.
	TimeWindowSeconds int `yaml:"time_window_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// RateLimitConfig locks out clients that keep sending rejected requests.
type RateLimitConfig struct {
	// MaxRejected is the number of rejected requests before lockout.
	MaxRejected int `yaml:"max_rejected"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds is the maximum lockout duration (for exponential backoff).
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum size of a client request in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Dim:     5,
			Catalog: "data/tiles.yaml",
		},
		Output: OutputConfig{
			Render: true,
			Scale:  10,
		},
		Storage: StorageConfig{
			Enabled:    false,
			Driver:     "sqlite",
			SQLitePath: "data/maps.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Server: ServerConfig{
			Address: ":4480",
			MaxDim:  64,
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 64 * 1024,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
			RateLimit: RateLimitConfig{
				MaxRejected:       5,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
			Throttle: ThrottleConfig{
				Enabled:           true,
				MaxRequests:       10,
				TimeWindowSeconds: 10,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist the defaults are used.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return config, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return DefaultConfig(), fmt.Errorf("failed to parse config YAML: %w", err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if dim := os.Getenv("TILEGEN_DIM"); dim != "" {
		n, err := strconv.Atoi(dim)
		if err != nil {
			return fmt.Errorf("%w: TILEGEN_DIM=%q", ErrInvalidConfig, dim)
		}
		c.Generator.Dim = n
	}
	if seed := os.Getenv("TILEGEN_SEED"); seed != "" {
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TILEGEN_SEED=%q", ErrInvalidConfig, seed)
		}
		c.Generator.Seed = n
	}
	if catalog := os.Getenv("TILEGEN_CATALOG"); catalog != "" {
		c.Generator.Catalog = catalog
	}
	if driver := os.Getenv("TILEGEN_DB_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	return nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	g := c.Generator
	if g.Dim <= 0 {
		return fmt.Errorf("%w: generator.dim must be positive, got %d", ErrInvalidConfig, g.Dim)
	}
	if strings.TrimSpace(g.Catalog) == "" {
		return fmt.Errorf("%w: generator.catalog is required", ErrInvalidConfig)
	}
	if g.ParallelWorkers < 0 {
		return fmt.Errorf("%w: generator.parallel_workers must not be negative", ErrInvalidConfig)
	}
	for i, s := range g.Seeds {
		if s.X < 0 || s.X >= g.Dim || s.Y < 0 || s.Y >= g.Dim {
			return fmt.Errorf("%w: seed %d at (%d,%d) lies outside a %dx%d grid", ErrInvalidConfig, i, s.X, s.Y, g.Dim, g.Dim)
		}
		if strings.TrimSpace(s.Tile) == "" {
			return fmt.Errorf("%w: seed %d has no tile", ErrInvalidConfig, i)
		}
	}
	if c.Storage.Enabled {
		switch c.Storage.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
		}
	}
	if c.Server.MaxDim <= 0 {
		return fmt.Errorf("%w: server.max_dim must be positive", ErrInvalidConfig)
	}
	return nil
}

// WFCSeeds converts the configured seeds for the generator.
func (g GeneratorConfig) WFCSeeds() []wfc.Seed {
	seeds := make([]wfc.Seed, 0, len(g.Seeds))
	for _, s := range g.Seeds {
		seeds = append(seeds, wfc.Seed{
			Coord:       wfc.Coord{X: s.X, Y: s.Y},
			TileID:      s.Tile,
			Orientation: wfc.Orientation(s.Orientation),
		})
	}
	return seeds
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
