package test

import (
	"fmt"
	"reflect"

	"github.com/lawnchairsociety/tilegen/internal/server"
)

// =============================================================================
// Group 2: Generation
// =============================================================================

// TestFullCoverage tests that every cell ends up either filled or failed
func TestFullCoverage(serverAddr string) TestResult {
	const testName = "Full Coverage"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	const dim = 8
	_, s, res := run(testName, client, server.GenerateRequest{Dim: dim, Seed: 42})
	if res != nil {
		return *res
	}

	if s.Filled+s.Failed != dim*dim {
		return fail(testName, "filled %d + failed %d != %d cells", s.Filled, s.Failed, dim*dim)
	}
	if s.Steps > dim*dim {
		return fail(testName, "%d steps exceeds %d cells", s.Steps, dim*dim)
	}
	if s.Violations != 0 {
		return fail(testName, "%d adjacent generated pairs do not match", s.Violations)
	}
	return pass(testName, "%d filled, %d failed in %d steps", s.Filled, s.Failed, s.Steps)
}

// TestEventStreamMatchesSummary tests that each cell is reported exactly once
// and the counts agree with the summary
func TestEventStreamMatchesSummary(serverAddr string) TestResult {
	const testName = "Event Stream Matches Summary"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	const dim = 6
	cells, s, res := run(testName, client, server.GenerateRequest{Dim: dim, Seed: 7})
	if res != nil {
		return *res
	}

	seen := make(map[[2]int]bool)
	placed, failed := 0, 0
	for _, ev := range cells {
		key := [2]int{ev.Cell.X, ev.Cell.Y}
		if seen[key] {
			return fail(testName, "cell (%d,%d) reported twice", ev.Cell.X, ev.Cell.Y)
		}
		seen[key] = true
		if ev.Cell.X < 0 || ev.Cell.X >= dim || ev.Cell.Y < 0 || ev.Cell.Y >= dim {
			return fail(testName, "cell (%d,%d) outside the grid", ev.Cell.X, ev.Cell.Y)
		}
		if ev.Type == server.EventPlaced {
			placed++
		} else {
			failed++
		}
	}
	logResult(testName, placed == s.Filled && failed == s.Failed,
		fmt.Sprintf("events placed=%d failed=%d, summary filled=%d failed=%d", placed, failed, s.Filled, s.Failed))

	if placed != s.Filled || failed != s.Failed {
		return fail(testName, "events report %d placed/%d failed, summary %d/%d", placed, failed, s.Filled, s.Failed)
	}
	return pass(testName, "%d cell events agree with the summary", len(cells))
}

// TestDeterministicSeed tests that the same seed reproduces the same map
func TestDeterministicSeed(serverAddr string) TestResult {
	const testName = "Deterministic Seed"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	req := server.GenerateRequest{Dim: 6, Seed: 1234}
	first, _, res := run(testName, client, req)
	if res != nil {
		return *res
	}
	second, _, res := run(testName, client, req)
	if res != nil {
		return *res
	}

	if !reflect.DeepEqual(first, second) {
		return fail(testName, "two runs with seed %d differ", req.Seed)
	}
	return pass(testName, "Seed %d produced the same %d events twice", req.Seed, len(first))
}

// TestSeedPlacement tests that seed tiles are placed first and flagged
func TestSeedPlacement(serverAddr string) TestResult {
	const testName = "Seed Placement"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	// Learn a tile id from the server's catalog
	cells, _, res := run(testName, client, server.GenerateRequest{Dim: 1, Seed: 1})
	if res != nil {
		return *res
	}
	if len(cells) != 1 || cells[0].Type != server.EventPlaced {
		return fail(testName, "1x1 map did not place its only cell")
	}
	tile := cells[0].Cell.Tile
	logAction(testName, fmt.Sprintf("Using tile '%s' as seed", tile))

	seeds := []server.SeedRequest{{X: 2, Y: 2, Tile: tile, Orientation: 1}, {X: 0, Y: 4, Tile: tile}}
	cells, s, res := run(testName, client, server.GenerateRequest{Dim: 5, Seed: 9, Seeds: seeds})
	if res != nil {
		return *res
	}
	if len(cells) < len(seeds) {
		return fail(testName, "only %d events for %d seeds", len(cells), len(seeds))
	}
	for i, want := range seeds {
		got := cells[i].Cell
		if cells[i].Type != server.EventPlaced || !got.Seed || got.X != want.X || got.Y != want.Y || got.Tile != want.Tile {
			return fail(testName, "event %d is %+v, want seed %+v", i, *got, want)
		}
	}
	if s.Steps != 25-len(seeds) {
		return fail(testName, "%d steps, want %d", s.Steps, 25-len(seeds))
	}
	return pass(testName, "%d seeds placed before %d generated steps", len(seeds), s.Steps)
}

// TestSingleCell tests the smallest possible map
func TestSingleCell(serverAddr string) TestResult {
	const testName = "Single Cell"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	_, s, res := run(testName, client, server.GenerateRequest{Dim: 1, Seed: 3})
	if res != nil {
		return *res
	}
	if s.Filled != 1 || s.Failed != 0 || s.Steps != 0 {
		return fail(testName, "unexpected summary %+v", *s)
	}
	return pass(testName, "1x1 map filled by the start tile")
}
