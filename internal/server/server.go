// Package server streams map generation to browser clients over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/tilegen/internal/config"
	"github.com/lawnchairsociety/tilegen/internal/export"
	"github.com/lawnchairsociety/tilegen/internal/logger"
	"github.com/lawnchairsociety/tilegen/internal/throttle"
	"github.com/lawnchairsociety/tilegen/internal/wfc"
)

// MapSaver persists finished maps. *store.Store satisfies it.
type MapSaver interface {
	SaveMap(ctx context.Context, m *export.MapYAML) (string, error)
}

// Server accepts WebSocket clients and runs one generation per request.
type Server struct {
	cfg           *config.Config
	catalog       *wfc.Catalog
	saver         MapSaver
	connLimiter   *ConnLimiter
	rejectLimiter *RejectLimiter
	throttle      throttle.Config
	httpServer    *http.Server

	ctx    context.Context // cancelled on shutdown
	cancel context.CancelFunc

	mu           sync.Mutex
	clients      map[*WebSocketClient]struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewServer creates a server drawing tiles from catalog.
func NewServer(cfg *config.Config, catalog *wfc.Catalog) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	th := cfg.Server.Throttle
	return &Server{
		cfg:           cfg,
		catalog:       catalog,
		connLimiter:   NewConnLimiter(cfg.Server.Connections),
		rejectLimiter: NewRejectLimiter(cfg.Server.RateLimit),
		throttle:      throttle.ConfigFromYAML(th.Enabled, th.MaxRequests, th.TimeWindowSeconds),
		ctx:           ctx,
		cancel:        cancel,
		clients:       make(map[*WebSocketClient]struct{}),
	}
}

// SetStore enables persistence of every completed map.
func (s *Server) SetStore(saver MapSaver) {
	s.saver = saver
}

// Handler returns the HTTP routes: /ws for generation, /healthz for probes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", srv.Addr, "tiles", s.catalog.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, cancels running generations, closes
// open clients and waits for their handlers until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancel()
		s.rejectLimiter.Stop()

		s.mu.Lock()
		srv := s.httpServer
		for c := range s.clients {
			c.Close("server shutting down")
		}
		s.mu.Unlock()

		if srv != nil {
			err = srv.Shutdown(ctx)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			logger.Info("Server shutdown complete")
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	})
	return err
}

type healthResponse struct {
	Status      string `json:"status"`
	Tiles       int    `json:"tiles"`
	Connections int    `json:"connections"`
	Store       bool   `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, _ := s.connLimiter.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:      "ok",
		Tiles:       s.catalog.Len(),
		Connections: total,
		Store:       s.saver != nil,
	})
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if locked, remaining := s.rejectLimiter.IsLocked(clientIP); locked {
		logger.Warning("WebSocket connection rejected - client locked out",
			"client_ip", clientIP,
			"remaining", remaining.Round(time.Second))
		http.Error(w, "Too many rejected requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	client := NewWebSocketClient(wsConn, s.cfg.Server.WebSocket.MaxMessageSize)
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.handleWebSocketConnection(client, clientIP)
}

// handleWebSocketConnection serves requests from one client until it leaves.
func (s *Server) handleWebSocketConnection(client *WebSocketClient, clientIP string) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, client)
		s.mu.Unlock()
		s.connLimiter.Release(clientIP)
		client.Close("")
		s.wg.Done()
	}()

	log := logger.With("client_ip", clientIP)
	log.Info("Client connected")
	tracker := throttle.NewTracker(s.throttle)

	for {
		req, err := client.ReadRequest()
		if errors.Is(err, ErrBadRequest) {
			if !s.reject(client, clientIP, err) {
				return
			}
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Client read failed", "error", err)
			} else {
				log.Info("Client disconnected")
			}
			return
		}

		if check := tracker.Check(); !check.Allowed {
			log.Debug("Request throttled", "wait", check.Wait)
			err := fmt.Errorf("%w, retry in %s", ErrThrottled, check.Wait.Round(100*time.Millisecond))
			if !s.reject(client, clientIP, err) {
				return
			}
			continue
		}

		if err := s.serve(client, clientIP, req); err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				if !s.reject(client, clientIP, err) {
					return
				}
				continue
			}
			log.Info("Closing client", "reason", err)
			return
		}
	}
}

// reject reports err to the client and counts it against clientIP. It returns
// false when the client has been locked out and must be disconnected.
func (s *Server) reject(client *WebSocketClient, clientIP string, err error) bool {
	if werr := client.WriteEvent(errorEvent(err)); werr != nil {
		return false
	}
	locked, d := s.rejectLimiter.RecordRejected(clientIP)
	if locked {
		logger.Warning("Client locked out after rejected requests", "client_ip", clientIP, "lockout", d)
		client.WriteEvent(errorEvent(fmt.Errorf("too many rejected requests, locked out for %s", d.Round(time.Second))))
		return false
	}
	return true
}

// streamObserver forwards generator events to the client. The first write
// failure cancels the run.
type streamObserver struct {
	client *WebSocketClient
	cancel context.CancelFunc
	err    error
}

func (o *streamObserver) CellPlaced(p wfc.Placement) {
	o.send(placedEvent(p))
}

func (o *streamObserver) CellFailed(c wfc.Coord) {
	o.send(failedEvent(c))
}

func (o *streamObserver) send(ev Event) {
	if o.err != nil {
		return
	}
	if err := o.client.WriteEvent(ev); err != nil {
		o.err = err
		o.cancel()
	}
}

// serve runs one request. Errors wrapping ErrInvalidRequest are the client's
// fault and leave the connection open; any other error ends the connection.
func (s *Server) serve(client *WebSocketClient, clientIP string, req GenerateRequest) error {
	if err := req.Validate(s.cfg.Server.MaxDim); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	obs := &streamObserver{client: client, cancel: cancel}

	opts := []wfc.Option{
		wfc.WithObserver(obs),
		wfc.WithParallelSearch(s.cfg.Generator.ParallelWorkers),
	}
	if req.Seed != 0 {
		opts = append(opts, wfc.WithSeed(req.Seed))
	}
	gen, err := wfc.NewGenerator(s.catalog, req.Dim, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	log := logger.With("client_ip", clientIP, "dim", req.Dim, "seed", gen.Seed())
	started := time.Now()

	result, err := gen.Generate(ctx, req.WFCSeeds())
	if obs.err != nil {
		return obs.err
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if errors.Is(err, wfc.ErrInvalidSeed) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		log.Error("Generation failed", "error", err)
		client.WriteEvent(errorEvent(err))
		return err
	}
	s.rejectLimiter.RecordAccepted(clientIP)

	summary := &Summary{
		Dim:        req.Dim,
		Seed:       gen.Seed(),
		Steps:      result.Steps,
		Filled:     result.Grid.Filled(),
		Failed:     len(result.Failures),
		Violations: len(wfc.GeneratedViolations(wfc.Validate(result.Grid, s.catalog))),
	}

	if s.saver != nil {
		m := export.FromResult(result, s.catalog, gen.Seed())
		id, err := s.saver.SaveMap(ctx, m)
		if err != nil {
			log.Error("Failed to save map", "error", err)
		} else {
			summary.MapID = id
		}
	}

	log.Info("Map generated",
		"steps", summary.Steps,
		"filled", summary.Filled,
		"failed", summary.Failed,
		"map_id", summary.MapID,
		"elapsed", time.Since(started))

	return client.WriteEvent(Event{Type: EventSummary, Summary: summary})
}
