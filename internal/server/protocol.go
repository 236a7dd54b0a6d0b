package server

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

// ErrInvalidRequest is returned for well-formed requests the server refuses.
var ErrInvalidRequest = errors.New("server: invalid request")

// ErrThrottled is returned when a connection starts generations too quickly.
var ErrThrottled = errors.New("server: too many requests")

// Event types sent to clients
const (
	EventPlaced  = "placed"
	EventFailed  = "failed"
	EventSummary = "summary"
	EventError   = "error"
)

// GenerateRequest asks for one map. A zero seed lets the server pick one.
type GenerateRequest struct {
	Dim   int           `json:"dim"`
	Seed  int64         `json:"seed"`
	Seeds []SeedRequest `json:"seeds,omitempty"`
}

// SeedRequest is a tile placed before generation starts
type SeedRequest struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Tile        string `json:"tile"`
	Orientation int    `json:"orientation"`
}

// Validate checks the request against the server's size limit. Seed contents
// are checked by the generator.
func (r GenerateRequest) Validate(maxDim int) error {
	if r.Dim <= 0 || r.Dim > maxDim {
		return fmt.Errorf("%w: dim must be between 1 and %d, got %d", ErrInvalidRequest, maxDim, r.Dim)
	}
	if len(r.Seeds) > r.Dim*r.Dim {
		return fmt.Errorf("%w: %d seeds for %d cells", ErrInvalidRequest, len(r.Seeds), r.Dim*r.Dim)
	}
	return nil
}

// WFCSeeds converts the requested seeds for the generator
func (r GenerateRequest) WFCSeeds() []wfc.Seed {
	seeds := make([]wfc.Seed, 0, len(r.Seeds))
	for _, s := range r.Seeds {
		seeds = append(seeds, wfc.Seed{
			Coord:       wfc.Coord{X: s.X, Y: s.Y},
			TileID:      s.Tile,
			Orientation: wfc.Orientation(s.Orientation),
		})
	}
	return seeds
}

// Event is one message streamed to the client. Exactly one of Cell, Summary
// and Error is set, matching Type.
type Event struct {
	Type    string     `json:"type"`
	Cell    *CellEvent `json:"cell,omitempty"`
	Summary *Summary   `json:"summary,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// CellEvent describes a placed or failed cell. Tile is empty for failures.
type CellEvent struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Tile        string `json:"tile,omitempty"`
	Orientation int    `json:"orientation"`
	Seed        bool   `json:"seed,omitempty"`
}

// Summary closes a successful run
type Summary struct {
	MapID      string `json:"map_id,omitempty"`
	Dim        int    `json:"dim"`
	Seed       int64  `json:"seed"`
	Steps      int    `json:"steps"`
	Filled     int    `json:"filled"`
	Failed     int    `json:"failed"`
	Violations int    `json:"violations"`
}

func placedEvent(p wfc.Placement) Event {
	return Event{Type: EventPlaced, Cell: &CellEvent{
		X:           p.X,
		Y:           p.Y,
		Tile:        p.TileID,
		Orientation: int(p.Orientation),
		Seed:        p.Seed,
	}}
}

func failedEvent(c wfc.Coord) Event {
	return Event{Type: EventFailed, Cell: &CellEvent{X: c.X, Y: c.Y}}
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}
