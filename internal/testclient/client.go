// Package testclient drives a running tile server over WebSocket for
// integration tests.
package testclient

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/tilegen/internal/server"
)

// TestClient represents a test client connection to the tile server
type TestClient struct {
	Name   string
	conn   *websocket.Conn
	events []server.Event
	mu     sync.Mutex
	wmu    sync.Mutex
	done   chan struct{}
	closed bool
	err    error // read error that stopped the reader
}

// NewTestClient connects to the server at address (host:port, or a full
// ws:// URL) and starts collecting events in the background.
func NewTestClient(name string, address string) (*TestClient, error) {
	return NewTestClientWithOrigin(name, address, "")
}

// NewTestClientWithOrigin connects sending the given Origin header.
func NewTestClientWithOrigin(name, address, origin string) (*TestClient, error) {
	var header http.Header
	if origin != "" {
		header = http.Header{"Origin": []string{origin}}
	}

	conn, resp, err := websocket.DefaultDialer.Dial(URL(address), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
		done: make(chan struct{}),
	}

	// Start reading events in background
	go client.readEvents()

	return client, nil
}

// URL turns a host:port into the server's WebSocket endpoint
func URL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}
	if rest, ok := strings.CutPrefix(address, "http://"); ok {
		address = rest
	}
	return "ws://" + strings.TrimSuffix(address, "/") + "/ws"
}

// readEvents continuously reads events from the server
func (c *TestClient) readEvents() {
	defer close(c.done)
	for {
		var ev server.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
	}
}

// Generate sends a generation request
func (c *TestClient) Generate(req server.GenerateRequest) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteJSON(req)
}

// SendRaw sends a text message as is
func (c *TestClient) SendRaw(msg string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// GetEvents returns all events received so far
func (c *TestClient) GetEvents() []server.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]server.Event, len(c.events))
	copy(result, c.events)
	return result
}

// ClearEvents clears the event buffer
func (c *TestClient) ClearEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// WaitForEvent waits for an event of the given type (with timeout)
func (c *TestClient) WaitForEvent(eventType string, timeout time.Duration) (server.Event, bool) {
	return c.WaitForAnyEvent([]string{eventType}, timeout)
}

// WaitForAnyEvent waits for an event of any of the given types and returns
// the first one received.
func (c *TestClient) WaitForAnyEvent(types []string, timeout time.Duration) (server.Event, bool) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, ev := range c.GetEvents() {
			for _, t := range types {
				if ev.Type == t {
					return ev, true
				}
			}
		}
		select {
		case <-c.done:
			// Reader stopped; one last look at what arrived before it did
			for _, ev := range c.GetEvents() {
				for _, t := range types {
					if ev.Type == t {
						return ev, true
					}
				}
			}
			return server.Event{}, false
		case <-time.After(20 * time.Millisecond):
		}
	}

	return server.Event{}, false
}

// Run sends req and waits for the summary or error that closes it. The cell
// events of the run are returned along with the closing event.
func (c *TestClient) Run(req server.GenerateRequest, timeout time.Duration) ([]server.Event, server.Event, error) {
	c.ClearEvents()
	if err := c.Generate(req); err != nil {
		return nil, server.Event{}, err
	}

	last, ok := c.WaitForAnyEvent([]string{server.EventSummary, server.EventError}, timeout)
	if !ok {
		return nil, server.Event{}, fmt.Errorf("no summary within %s", timeout)
	}

	var cells []server.Event
	for _, ev := range c.GetEvents() {
		if ev.Type == server.EventPlaced || ev.Type == server.EventFailed {
			cells = append(cells, ev)
		}
	}
	return cells, last, nil
}

// Closed reports whether the server has closed the connection
func (c *TestClient) Closed(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close closes the client connection
func (c *TestClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wmu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

// PrintEvents prints all events (for debugging)
func (c *TestClient) PrintEvents() {
	events := c.GetEvents()
	fmt.Printf("\n=== Events for %s ===\n", c.Name)
	for i, ev := range events {
		switch {
		case ev.Cell != nil:
			fmt.Printf("[%d] %s (%d,%d) %s@%d\n", i, ev.Type, ev.Cell.X, ev.Cell.Y, ev.Cell.Tile, ev.Cell.Orientation)
		case ev.Summary != nil:
			fmt.Printf("[%d] %s %+v\n", i, ev.Type, *ev.Summary)
		default:
			fmt.Printf("[%d] %s %s\n", i, ev.Type, ev.Error)
		}
	}
	fmt.Println("======================")
}
