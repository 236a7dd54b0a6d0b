package wfc

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the ordered, read-only set of tile types available to the
// generator. Candidate enumeration follows catalog order.
type Catalog struct {
	types []TileType
	index map[string]int
}

// NewCatalog builds a catalog from tile type definitions. The definitions are
// deep-copied so later changes by the caller cannot leak into a running
// generation.
func NewCatalog(types []TileType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, ErrCatalogEmpty
	}

	c := &Catalog{
		types: make([]TileType, 0, len(types)),
		index: make(map[string]int, len(types)),
	}
	for _, t := range types {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("%w: tile type at position %d", ErrBlankTileID, len(c.types))
		}
		if _, exists := c.index[t.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTileID, t.ID)
		}
		c.index[t.ID] = len(c.types)
		c.types = append(c.types, t.clone())
	}
	return c, nil
}

// Len returns the number of tile types
func (c *Catalog) Len() int {
	return len(c.types)
}

// Types returns the tile types in catalog order
func (c *Catalog) Types() []TileType {
	out := make([]TileType, len(c.types))
	copy(out, c.types)
	return out
}

// At returns the i-th tile type
func (c *Catalog) At(i int) TileType {
	return c.types[i]
}

// Lookup returns the tile type with the given id
func (c *Catalog) Lookup(id string) (TileType, bool) {
	i, ok := c.index[id]
	if !ok {
		return TileType{}, false
	}
	return c.types[i], true
}

// CatalogYAML is the on-disk layout of a tile catalog:
//
//	tiles:
//	  - id: cross
//	    symmetry: full
//	    top: [R]
//	    right: [R]
//	    bottom: [R]
//	    left: [R]
type CatalogYAML struct {
	Tiles []TileYAML `yaml:"tiles"`
}

// TileYAML is one catalog entry in YAML form
type TileYAML struct {
	ID       string   `yaml:"id"`
	Symmetry string   `yaml:"symmetry"`
	Top      []string `yaml:"top"`
	Right    []string `yaml:"right"`
	Bottom   []string `yaml:"bottom"`
	Left     []string `yaml:"left"`
}

// LoadCatalog loads a tile catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML tile catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc CatalogYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	types := make([]TileType, 0, len(doc.Tiles))
	for _, ty := range doc.Tiles {
		t, err := ty.ToTileType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return NewCatalog(types)
}

// ToTileType converts the YAML representation to a TileType
func (ty TileYAML) ToTileType() (TileType, error) {
	t := TileType{ID: ty.ID, Symmetry: ParseSymmetry(ty.Symmetry)}
	for dir, symbols := range [4][]string{ty.Top, ty.Right, ty.Bottom, ty.Left} {
		edge := make(EdgeSet, 0, len(symbols))
		for _, s := range symbols {
			c, err := ParseConnector(s)
			if err != nil {
				return TileType{}, fmt.Errorf("tile %q %s edge: %w", ty.ID, Direction(dir), err)
			}
			edge = append(edge, c)
		}
		t.Edges[dir] = edge
	}
	return t, nil
}

// ToYAML converts a catalog back into its YAML representation
func (c *Catalog) ToYAML() CatalogYAML {
	doc := CatalogYAML{Tiles: make([]TileYAML, 0, len(c.types))}
	for _, t := range c.types {
		ty := TileYAML{ID: t.ID, Symmetry: t.Symmetry.String()}
		sides := [4]*[]string{&ty.Top, &ty.Right, &ty.Bottom, &ty.Left}
		for dir, edge := range t.Edges {
			symbols := make([]string, len(edge))
			for i, conn := range edge {
				symbols[i] = conn.String()
			}
			*sides[dir] = symbols
		}
		doc.Tiles = append(doc.Tiles, ty)
	}
	return doc
}
