package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrBadRequest wraps requests that could not be decoded.
var ErrBadRequest = errors.New("server: malformed request")

const writeWait = 10 * time.Second

// WebSocketClient wraps a WebSocket connection carrying JSON requests and events.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadRequest blocks for the next request. Blank messages are skipped. A
// message that is not a valid request returns an error wrapping ErrBadRequest
// and leaves the connection usable; any other error means the connection is gone.
func (c *WebSocketClient) ReadRequest() (GenerateRequest, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return GenerateRequest{}, err
		}
		if len(bytes.TrimSpace(message)) == 0 {
			continue
		}

		var req GenerateRequest
		if err := json.Unmarshal(message, &req); err != nil {
			return GenerateRequest{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return req, nil
	}
}

// WriteEvent sends one event as a JSON text message.
func (c *WebSocketClient) WriteEvent(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

// Close sends a close frame and closes the connection.
func (c *WebSocketClient) Close(reason string) error {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
