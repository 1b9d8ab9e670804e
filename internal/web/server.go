package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/foodshare/pickup-tracker/internal/presence"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes the reconciled presence view to browser maps: a JSON
// snapshot endpoint and a websocket pushing a snapshot per reconciliation.
type Server struct {
	server *http.Server
	view   *presence.View
	logger zerolog.Logger

	running bool
}

// NewServer creates a new web Server instance.
func NewServer(listenAddr string, view *presence.View, logger zerolog.Logger) *Server {
	s := &Server{
		view:   view,
		logger: logger.With().Str("module", "web").Logger(),
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/presence", s.handleSnapshot)
	r.Get("/ws/presence", s.handleStream)

	s.server = &http.Server{
		Addr:           listenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	if s.running {
		s.logger.Warn().Msg("Web server is already running")
		return errors.New("web server is already running")
	}
	s.running = true

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Web server terminated unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("Web server started")
	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (s *Server) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("Web server is not running")
		return errors.New("web server is not running")
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.view.Snapshot()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode presence snapshot")
	}
}

// handleStream upgrades to a websocket and pushes one snapshot per
// reconciliation. A consumer that cannot keep up misses intermediate
// snapshots instead of blocking the view.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	id, updates := s.view.Subscribe()
	defer s.view.Unsubscribe(id)

	// Drain the client's side of the connection so closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial state before the first change arrives.
	if err := s.writeSnapshot(conn, s.view.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeSnapshot(conn, snapshot); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn, snapshot presence.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode presence snapshot")
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
