package wfc

import (
	"fmt"
	"strconv"
	"strings"
)

// Connector is a symbol exposed on a tile edge. Two edges fit when they share
// at least one connector.
type Connector int

const (
	ConnectorInvalid Connector = iota - 1
	ConnectorR
	ConnectorG
	ConnectorB
)

// String returns the string representation of a Connector
func (c Connector) String() string {
	switch c {
	case ConnectorR:
		return "R"
	case ConnectorG:
		return "G"
	case ConnectorB:
		return "B"
	case ConnectorInvalid:
		return "invalid"
	default:
		return strconv.Itoa(int(c))
	}
}

// ParseConnector converts a catalog symbol to a Connector. Letters name the
// built-in alphabet; any non-negative number is accepted as an extra symbol.
func ParseConnector(s string) (Connector, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "R":
		return ConnectorR, nil
	case "G":
		return ConnectorG, nil
	case "B":
		return ConnectorB, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return ConnectorInvalid, fmt.Errorf("%w: %q", ErrInvalidConnector, s)
	}
	return Connector(n), nil
}

// EdgeSet is the unordered collection of connectors on one edge of a tile.
type EdgeSet []Connector

// Contains returns true if the edge carries the connector
func (e EdgeSet) Contains(c Connector) bool {
	for _, have := range e {
		if have == c {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share backing storage with e
func (e EdgeSet) Clone() EdgeSet {
	if e == nil {
		return nil
	}
	out := make(EdgeSet, len(e))
	copy(out, e)
	return out
}

func (e EdgeSet) String() string {
	parts := make([]string, len(e))
	for i, c := range e {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Compatible reports whether two facing edges share at least one connector.
// An empty edge is compatible with nothing.
func Compatible(a, b EdgeSet) bool {
	for _, c := range a {
		if b.Contains(c) {
			return true
		}
	}
	return false
}
