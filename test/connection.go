package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/server"
)

// =============================================================================
// Group 1: Connection
// =============================================================================

// TestBasicConnection tests that a client can connect and run a tiny map
func TestBasicConnection(serverAddr string) TestResult {
	const testName = "Basic Connection"

	client, res := connect(testName, serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	_, s, res := run(testName, client, server.GenerateRequest{Dim: 2})
	if res != nil {
		return *res
	}
	return pass(testName, "Connected and generated a 2x2 map (seed %d)", s.Seed)
}

// healthURL turns the server address into its health endpoint
func healthURL(serverAddr string) string {
	addr := serverAddr
	for _, prefix := range []string{"ws://", "wss://", "http://", "https://"} {
		addr = strings.TrimPrefix(addr, prefix)
	}
	addr = strings.TrimSuffix(strings.TrimSuffix(addr, "/ws"), "/")
	return "http://" + addr + "/healthz"
}

type health struct {
	Status      string `json:"status"`
	Tiles       int    `json:"tiles"`
	Connections int    `json:"connections"`
	Store       bool   `json:"store"`
}

// TestHealthCheck tests the HTTP health endpoint
func TestHealthCheck(serverAddr string) TestResult {
	const testName = "Health Check"

	url := healthURL(serverAddr)
	logAction(testName, "GET "+url)
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(url)
	if err != nil {
		return fail(testName, "Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(testName, "Health returned status %d", resp.StatusCode)
	}
	var h health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fail(testName, "Health body is not JSON: %v", err)
	}
	logResult(testName, h.Status == "ok", fmt.Sprintf("%+v", h))
	if h.Status != "ok" || h.Tiles == 0 {
		return fail(testName, "Unexpected health %+v", h)
	}
	return pass(testName, "Server healthy with %d tiles (store: %v)", h.Tiles, h.Store)
}

// TestMultipleClients tests that clients generate independently at the same time
func TestMultipleClients(serverAddr string) TestResult {
	const testName = "Multiple Clients"
	const clients = 3

	var wg sync.WaitGroup
	errs := make(chan string, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, res := connect(testName, serverAddr)
			if res != nil {
				errs <- res.Message
				return
			}
			defer client.Close()

			dim := 4 + i
			_, s, res := run(testName, client, server.GenerateRequest{Dim: dim, Seed: int64(100 + i)})
			if res != nil {
				errs <- res.Message
				return
			}
			if s.Dim != dim || s.Filled+s.Failed != dim*dim {
				errs <- fmt.Sprintf("client %d got summary %+v", i, *s)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		return fail(testName, "%s", msg)
	}
	return pass(testName, "%d concurrent clients each received their own map", clients)
}
