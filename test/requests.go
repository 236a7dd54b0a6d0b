package test

import (
	"time"

	"github.com/lawnchairsociety/tilegen/internal/server"
)

// =============================================================================
// Group 3: Request Errors
// =============================================================================
//
// Each test ends with a valid request. That proves the connection survived
// and clears the reject count the server keeps per address.

// TestInvalidDimension tests that out-of-range sizes are refused
func TestInvalidDimension(serverAddr string) TestResult {
	const testName = "Invalid Dimension"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	if res := expectError(testName, client, server.GenerateRequest{Dim: 0}, "dim must be between"); res != nil {
		return *res
	}
	if _, _, res := run(testName, client, server.GenerateRequest{Dim: 2}); res != nil {
		return *res
	}
	return pass(testName, "Zero dimension refused, connection kept")
}

// TestMalformedRequest tests that undecodable messages are refused
func TestMalformedRequest(serverAddr string) TestResult {
	const testName = "Malformed Request"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	client.ClearEvents()
	logAction(testName, "Sending non-JSON text")
	if err := client.SendRaw("generate a map please"); err != nil {
		return fail(testName, "Send failed: %v", err)
	}
	ev, ok := client.WaitForEvent(server.EventError, 2*time.Second)
	logResult(testName, ok, ev.Error)
	if !ok {
		return fail(testName, "No error event for malformed request")
	}

	if _, _, res := run(testName, client, server.GenerateRequest{Dim: 2}); res != nil {
		return *res
	}
	return pass(testName, "Malformed request refused: %s", ev.Error)
}

// TestUnknownSeedTile tests that seeds naming a missing tile are refused
func TestUnknownSeedTile(serverAddr string) TestResult {
	const testName = "Unknown Seed Tile"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	req := server.GenerateRequest{Dim: 3, Seeds: []server.SeedRequest{{X: 1, Y: 1, Tile: "no-such-tile"}}}
	if res := expectError(testName, client, req, "unknown tile id"); res != nil {
		return *res
	}
	if _, _, res := run(testName, client, server.GenerateRequest{Dim: 2}); res != nil {
		return *res
	}
	return pass(testName, "Unknown seed tile refused, connection kept")
}

// TestOutOfBoundsSeed tests that seeds outside the grid are refused
func TestOutOfBoundsSeed(serverAddr string) TestResult {
	const testName = "Out Of Bounds Seed"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	req := server.GenerateRequest{Dim: 3, Seeds: []server.SeedRequest{{X: 3, Y: 0, Tile: "any"}}}
	if res := expectError(testName, client, req, "out of bounds"); res != nil {
		return *res
	}
	if _, _, res := run(testName, client, server.GenerateRequest{Dim: 2}); res != nil {
		return *res
	}
	return pass(testName, "Out of bounds seed refused, connection kept")
}
