// Package api serves the HTTP control API and a websocket stream of the
// strip.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Controller is the part of *controller.Controller the API drives.
type Controller interface {
	Submit(ctx context.Context, cmd controller.Command) (controller.Result, error)
	Status() controller.Status
	Config() config.Config
	Running() bool
}

// Pixels exposes the last shown frame. *sink.Memory implements it.
type Pixels interface {
	Snapshot() []sink.Color
}

// Server is the control API.
type Server struct {
	ctrl     Controller
	pixels   Pixels
	log      *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	interval time.Duration

	httpServer *http.Server
	stopOnce   sync.Once
	stop       chan struct{}
	wg         sync.WaitGroup
}

// Option tunes a Server.
type Option func(*Server)

// WithStreamInterval sets how often websocket clients get a frame.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

// New creates a server. pixels may be nil, in which case the websocket
// stream carries status only.
func New(ctrl Controller, pixels Pixels, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ctrl:     ctrl,
		pixels:   pixels,
		log:      log.With("component", "api"),
		mux:      http.NewServeMux(),
		interval: 50 * time.Millisecond,
		stop:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("POST /api/config", s.handleUpdateConfig)
	s.mux.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	s.mux.HandleFunc("PATCH /api/config", s.handleUpdateConfig)
	s.mux.HandleFunc("POST /api/effect/set", s.handleSetEffect)
	s.mux.HandleFunc("POST /api/playlist/resume", s.handleResume)
	s.mux.HandleFunc("POST /api/playlist/add", s.handlePlaylistAdd)
	s.mux.HandleFunc("POST /api/playlist/remove", s.handlePlaylistRemove)
	s.mux.HandleFunc("GET /api/effects", s.handleEffects)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("http api listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown stops accepting requests and closes websocket streams.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
		s.wg.Wait()
	})
	return err
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"success": false, "error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
