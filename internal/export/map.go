// Package export writes finished maps to YAML and reads them back.
package export

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

var ErrInvalidMap = errors.New("export: invalid map file")

// MapYAML represents a generated map in YAML format
type MapYAML struct {
	ID                 string      `yaml:"id,omitempty"`
	Dim                int         `yaml:"dim"`
	Seed               int64       `yaml:"seed"`
	GeneratedAt        time.Time   `yaml:"generated_at"`
	CatalogFingerprint string      `yaml:"catalog_fingerprint"`
	Steps              int         `yaml:"steps"`
	Filled             int         `yaml:"filled"`
	Failed             int         `yaml:"failed"`
	Cells              []CellYAML  `yaml:"cells"`
	Failures           []CoordYAML `yaml:"failures,omitempty"`
}

// CellYAML is one filled cell
type CellYAML struct {
	X           int    `yaml:"x"`
	Y           int    `yaml:"y"`
	Tile        string `yaml:"tile"`
	Orientation int    `yaml:"orientation"`
	Seed        bool   `yaml:"seed,omitempty"`
}

// CoordYAML is a cell coordinate
type CoordYAML struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// FromResult captures a generation result. Cells are listed by Y then X.
func FromResult(result *wfc.Result, catalog *wfc.Catalog, seed int64) *MapYAML {
	m := &MapYAML{
		Dim:                result.Grid.Dim(),
		Seed:               seed,
		GeneratedAt:        time.Now().UTC().Truncate(time.Second),
		CatalogFingerprint: Fingerprint(catalog),
		Steps:              result.Steps,
		Filled:             result.Grid.Filled(),
		Failed:             len(result.Failures),
	}
	for _, p := range result.Grid.Placements() {
		m.Cells = append(m.Cells, CellYAML{
			X:           p.X,
			Y:           p.Y,
			Tile:        p.TileID,
			Orientation: int(p.Orientation),
			Seed:        p.Seed,
		})
	}
	for _, c := range result.Failures {
		m.Failures = append(m.Failures, CoordYAML{X: c.X, Y: c.Y})
	}
	return m
}

// Fingerprint returns the hex blake2b-256 digest of the catalog's YAML form.
// Two catalogs with the same tiles in the same order share a fingerprint.
func Fingerprint(catalog *wfc.Catalog) string {
	if catalog == nil {
		return ""
	}
	data, err := yaml.Marshal(catalog.ToYAML())
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Grid rebuilds the grid described by the map
func (m *MapYAML) Grid() (*wfc.Grid, error) {
	g, err := wfc.NewGrid(m.Dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	for _, c := range m.Cells {
		coord := wfc.Coord{X: c.X, Y: c.Y}
		if !g.InBounds(coord) {
			return nil, fmt.Errorf("%w: cell %s outside %dx%d grid", ErrInvalidMap, coord, m.Dim, m.Dim)
		}
		tile := wfc.PlacedTile{TileID: c.Tile, Orientation: wfc.Orientation(c.Orientation), Seed: c.Seed}
		if err := g.Set(g.Index(coord), tile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
		}
	}
	return g, nil
}

// FailureCoords returns the recorded failures as grid coordinates
func (m *MapYAML) FailureCoords() []wfc.Coord {
	out := make([]wfc.Coord, 0, len(m.Failures))
	for _, f := range m.Failures {
		out = append(out, wfc.Coord{X: f.X, Y: f.Y})
	}
	return out
}

// Seeds turns every saved cell into a seed placement, so a saved map can be
// the starting point of a new run.
func (m *MapYAML) Seeds() []wfc.Seed {
	seeds := make([]wfc.Seed, 0, len(m.Cells))
	for _, c := range m.Cells {
		seeds = append(seeds, wfc.Seed{
			Coord:       wfc.Coord{X: c.X, Y: c.Y},
			TileID:      c.Tile,
			Orientation: wfc.Orientation(c.Orientation),
		})
	}
	return seeds
}

// LoadMapYAML reads a map written by WriteMapYAML
func LoadMapYAML(path string) (*MapYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	var m MapYAML
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map YAML: %w", err)
	}
	if m.Dim <= 0 {
		return nil, fmt.Errorf("%w: dim %d", ErrInvalidMap, m.Dim)
	}
	return &m, nil
}

// WriteMapYAML writes a map to a YAML file
func WriteMapYAML(m *MapYAML, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# Tile map %dx%d\n", m.Dim, m.Dim)
	fmt.Fprintf(f, "# Generated with seed: %d\n", m.Seed)
	fmt.Fprintf(f, "# Filled: %d, failed: %d\n\n", m.Filled, m.Failed)

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)

	// One flow mapping per cell keeps large maps readable
	ordered := &orderedMapYAML{
		ID:                 m.ID,
		Dim:                m.Dim,
		Seed:               m.Seed,
		GeneratedAt:        m.GeneratedAt,
		CatalogFingerprint: m.CatalogFingerprint,
		Steps:              m.Steps,
		Filled:             m.Filled,
		Failed:             m.Failed,
		Cells:              cellsNode(m.Cells),
		Failures:           failuresNode(m.Failures),
	}

	if err := encoder.Encode(ordered); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// orderedMapYAML is used for serialization with compact cell rows
type orderedMapYAML struct {
	ID                 string    `yaml:"id,omitempty"`
	Dim                int       `yaml:"dim"`
	Seed               int64     `yaml:"seed"`
	GeneratedAt        time.Time `yaml:"generated_at"`
	CatalogFingerprint string    `yaml:"catalog_fingerprint"`
	Steps              int       `yaml:"steps"`
	Filled             int       `yaml:"filled"`
	Failed             int       `yaml:"failed"`
	Cells              yaml.Node `yaml:"cells"`
	Failures           yaml.Node `yaml:"failures"`
}

func cellsNode(cells []CellYAML) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range cells {
		row := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		addIntField(row, "x", c.X)
		addIntField(row, "y", c.Y)
		addStringField(row, "tile", c.Tile)
		addIntField(row, "orientation", c.Orientation)
		if c.Seed {
			addBoolField(row, "seed", true)
		}
		node.Content = append(node.Content, row)
	}
	return node
}

func failuresNode(failures []CoordYAML) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for _, f := range failures {
		row := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		addIntField(row, "x", f.X)
		addIntField(row, "y", f.Y)
		node.Content = append(node.Content, row)
	}
	return node
}

func addStringField(node *yaml.Node, key, value string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func addIntField(node *yaml.Node, key string, value int) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)},
	)
}

func addBoolField(node *yaml.Node, key string, value bool) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(value)},
	)
}
