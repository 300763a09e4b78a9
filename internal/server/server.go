// Package server exposes the room over HTTP: a websocket endpoint for
// clients and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Address        string
	ReadLimit      int64         // Largest inbound frame in bytes
	WriteWait      time.Duration // Deadline for one outbound write
	PongWait       time.Duration // How long a connection may stay silent
	PingPeriod     time.Duration // Must be less than PongWait
	SendBuffer     int           // Outbound frames buffered per connection
	AllowedOrigins []string      // Empty allows any origin
	RatePerSecond  float64
	RateBurst      int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:       ":8787",
		ReadLimit:     64 << 10,
		WriteWait:     10 * time.Second,
		PongWait:      60 * time.Second,
		PingPeriod:    54 * time.Second,
		SendBuffer:    256,
		RatePerSecond: 10,
		RateBurst:     20,
	}
}

// Room is the part of the room actor the server needs.
type Room interface {
	Submit(ctx context.Context, cmd room.Command) error
	Stats(ctx context.Context) (room.Stats, error)
}

// Server accepts websocket clients and feeds their frames to the room.
type Server struct {
	cfg      Config
	room     Room
	auth     Authenticator
	log      *log.Logger
	upgrader websocket.Upgrader
	http     *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[room.SessionID]*conn
	wg    sync.WaitGroup
}

// New creates a server. A nil auth uses HeaderAuthenticator.
func New(cfg Config, rm Room, auth Authenticator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if auth == nil {
		auth = HeaderAuthenticator{}
	}
	def := DefaultConfig()
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = def.SendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		room:   rm,
		auth:   auth,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[room.SessionID]*conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.ServeWS)
	mux.HandleFunc("GET /healthz", s.serveHealth)
	return mux
}

// ListenAndServe listens on the configured address and blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("listening", "address", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every websocket and waits for
// their pumps to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.cancel()

	s.mu.Lock()
	for _, c := range s.conns {
		c.handle.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("server stopped")
	return err
}

// ServeWS authenticates and upgrades one client connection.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.Authenticate(r)
	if err != nil {
		s.log.Debug("rejecting websocket", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sid := room.SessionID(uuid.NewString())
	c := &conn{
		srv:      s,
		ws:       ws,
		handle:   room.NewChannelSession(sid, s.cfg.SendBuffer),
		identity: identity,
		limiter:  s.newLimiter(),
		log:      s.log.With("session", sid, "user", identity.Name),
	}

	if err := s.room.Submit(s.ctx, room.Connect{Handle: c.handle, Identity: identity}); err != nil {
		s.log.Warn("room unavailable", "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "room unavailable"),
			time.Now().Add(s.cfg.WriteWait))
		ws.Close()
		return
	}

	if !s.track(c) {
		c.handle.Close()
		ws.Close()
		return
	}
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		c.readPump()
		s.untrack(c)
	}()

	c.log.Debug("websocket connected", "remote", r.RemoteAddr)
}

// track registers c and its two pumps. It reports false once Shutdown began.
func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[c.handle.ID()] = c
	s.wg.Add(2)
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.handle.ID())
	s.mu.Unlock()
}

// newLimiter returns the per-connection inbound budget. A non-positive rate
// disables flood control.
func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), max(s.cfg.RateBurst, 1))
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
}

type healthResponse struct {
	Status string `json:"status"`
	room.Stats
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	stats, err := s.room.Stats(ctx)
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Stats: stats})
}
