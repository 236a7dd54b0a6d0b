package test

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/server"
	"github.com/lawnchairsociety/tilegen/internal/testclient"
)

// runTimeout bounds a single generation request
const runTimeout = 10 * time.Second

// uniqueCounter provides unique client names within a single run
var uniqueCounter uint64

// uniqueName generates a unique client name
func uniqueName(base string) string {
	return fmt.Sprintf("%s-%d", base, atomic.AddUint64(&uniqueCounter, 1))
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: false, Message: fmt.Sprintf(format, args...)}
}

func pass(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf(format, args...)}
}

// connect opens a client or returns the failed result to report
func connect(testName, serverAddr string) (*testclient.TestClient, *TestResult) {
	name := uniqueName("tester")
	logAction(testName, fmt.Sprintf("Connecting as '%s'...", name))
	client, err := testclient.NewTestClient(name, serverAddr)
	if err != nil {
		r := fail(testName, "Failed to connect: %v", err)
		return nil, &r
	}
	return client, nil
}

// run sends req and requires a summary back
func run(testName string, client *testclient.TestClient, req server.GenerateRequest) ([]server.Event, *server.Summary, *TestResult) {
	logAction(testName, fmt.Sprintf("Requesting dim=%d seed=%d seeds=%d", req.Dim, req.Seed, len(req.Seeds)))
	cells, last, err := client.Run(req, runTimeout)
	if err != nil {
		r := fail(testName, "Request failed: %v", err)
		return nil, nil, &r
	}
	if last.Type != server.EventSummary {
		r := fail(testName, "Expected summary, got %s: %s", last.Type, last.Error)
		return nil, nil, &r
	}
	s := last.Summary
	logResult(testName, true, fmt.Sprintf("filled=%d failed=%d steps=%d", s.Filled, s.Failed, s.Steps))
	return cells, s, nil
}

// expectError sends req and requires an error event back
func expectError(testName string, client *testclient.TestClient, req server.GenerateRequest, want string) *TestResult {
	_, last, err := client.Run(req, runTimeout)
	if err != nil {
		r := fail(testName, "Request failed: %v", err)
		return &r
	}
	ok := last.Type == server.EventError && strings.Contains(last.Error, want)
	logResult(testName, ok, fmt.Sprintf("%s: %s", last.Type, last.Error))
	if !ok {
		r := fail(testName, "Expected error containing %q, got %s %q", want, last.Type, last.Error)
		return &r
	}
	return nil
}

// RunAllTests runs every scenario in order
func RunAllTests(serverAddr string) []TestResult {
	results := make([]TestResult, 0)
	for _, t := range getAllTests() {
		results = append(results, t.Func(serverAddr))
	}
	return results
}

// testEntry holds a test function and its name
type testEntry struct {
	Name string
	Func func(string) TestResult
}

// getAllTests returns all test entries in order
func getAllTests() []testEntry {
	return []testEntry{
		// Group 1: Connection
		{"Basic Connection", TestBasicConnection},
		{"Health Check", TestHealthCheck},
		{"Multiple Clients", TestMultipleClients},

		// Group 2: Generation
		{"Full Coverage", TestFullCoverage},
		{"Event Stream Matches Summary", TestEventStreamMatchesSummary},
		{"Deterministic Seed", TestDeterministicSeed},
		{"Seed Placement", TestSeedPlacement},
		{"Single Cell", TestSingleCell},

		// Group 3: Request Errors
		{"Invalid Dimension", TestInvalidDimension},
		{"Malformed Request", TestMalformedRequest},
		{"Unknown Seed Tile", TestUnknownSeedTile},
		{"Out Of Bounds Seed", TestOutOfBoundsSeed},
	}
}

// GetTestNames returns the names of all available tests
func GetTestNames() []string {
	tests := getAllTests()
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}
	return names
}

// RunFilteredTests runs only tests whose names contain the filter string (case-insensitive)
func RunFilteredTests(serverAddr string, filter string) []TestResult {
	results := make([]TestResult, 0)
	filterLower := strings.ToLower(filter)

	for _, t := range getAllTests() {
		if strings.Contains(strings.ToLower(t.Name), filterLower) {
			results = append(results, t.Func(serverAddr))
		}
	}

	return results
}

// PrintResults prints all test results in a formatted way
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
