package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

func placementAt(x, y int, id string, o int, seed bool) wfc.Placement {
	return wfc.Placement{
		Coord:      wfc.Coord{X: x, Y: y},
		PlacedTile: wfc.PlacedTile{TileID: id, Orientation: wfc.Orientation(o), Seed: seed},
	}
}

// pipe starts a server that upgrades one connection and hands it to handle,
// and returns a WebSocketClient wrapping the client side.
func pipe(t *testing.T, maxMessageSize int64, handle func(conn *websocket.Conn)) *WebSocketClient {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewWebSocketClient(conn, maxMessageSize)
}

// TestWebSocketClient_ReadRequest_EmptyMessages tests that blank messages are skipped
func TestWebSocketClient_ReadRequest_EmptyMessages(t *testing.T) {
	client := pipe(t, 0, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(""))
		conn.WriteMessage(websocket.TextMessage, []byte("   "))
		conn.WriteMessage(websocket.TextMessage, []byte("\n\n\n"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"dim":4,"seed":7,"seeds":[{"x":1,"y":2,"tile":"cross","orientation":3}]}`))
		time.Sleep(100 * time.Millisecond)
	})

	req, err := client.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}

	if req.Dim != 4 || req.Seed != 7 {
		t.Errorf("Expected dim 4 seed 7, got %+v", req)
	}
	if len(req.Seeds) != 1 || req.Seeds[0] != (SeedRequest{X: 1, Y: 2, Tile: "cross", Orientation: 3}) {
		t.Errorf("Unexpected seeds: %+v", req.Seeds)
	}
}

// TestWebSocketClient_ReadRequest_Malformed tests that undecodable messages are
// reported without closing the connection
func TestWebSocketClient_ReadRequest_Malformed(t *testing.T) {
	client := pipe(t, 0, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("generate please"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"dim":"five"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"dim":2}`))
		time.Sleep(100 * time.Millisecond)
	})

	for i := 0; i < 2; i++ {
		_, err := client.ReadRequest()
		if !errors.Is(err, ErrBadRequest) {
			t.Fatalf("message %d: expected ErrBadRequest, got %v", i, err)
		}
	}

	req, err := client.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest failed after malformed messages: %v", err)
	}
	if req.Dim != 2 {
		t.Errorf("Expected dim 2, got %d", req.Dim)
	}
}

// TestWebSocketClient_ReadRequest_TooLarge tests that the read limit is applied
func TestWebSocketClient_ReadRequest_TooLarge(t *testing.T) {
	client := pipe(t, 32, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"dim":3,"seeds":[{"x":0,"y":0,"tile":"a-very-long-tile-name"}]}`))
		time.Sleep(100 * time.Millisecond)
	})

	_, err := client.ReadRequest()
	if err == nil {
		t.Fatal("Expected an error for an oversized message")
	}
	if errors.Is(err, ErrBadRequest) {
		t.Errorf("Oversized message should end the connection, got %v", err)
	}
}

// TestWebSocketClient_WriteEvent tests writing events to the client
func TestWebSocketClient_WriteEvent(t *testing.T) {
	received := make(chan []byte, 1)
	client := pipe(t, 0, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
	})

	err := client.WriteEvent(placedEvent(placementAt(2, 1, "corner", 3, true)))
	if err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	select {
	case msg := <-received:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("Event is not JSON: %v", err)
		}
		want := CellEvent{X: 2, Y: 1, Tile: "corner", Orientation: 3, Seed: true}
		if ev.Type != EventPlaced || ev.Cell == nil || *ev.Cell != want {
			t.Errorf("Unexpected event %s", msg)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for message")
	}
}

// TestWebSocketClient_Close tests that Close sends a close frame with the reason
func TestWebSocketClient_Close(t *testing.T) {
	closed := make(chan error, 1)
	client := pipe(t, 0, func(conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		closed <- err
	})

	client.Close("bye")

	select {
	case err := <-closed:
		var ce *websocket.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("Expected close error, got %v", err)
		}
		if ce.Code != websocket.CloseNormalClosure || ce.Text != "bye" {
			t.Errorf("Unexpected close frame: %d %q", ce.Code, ce.Text)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for close")
	}
}

// TestWebSocketClient_RemoteAddr tests the RemoteAddr method
func TestWebSocketClient_RemoteAddr(t *testing.T) {
	done := make(chan struct{})
	client := pipe(t, 0, func(conn *websocket.Conn) {
		<-done
	})
	defer close(done)

	if client.RemoteAddr() == "" {
		t.Error("RemoteAddr should not be empty")
	}
}
