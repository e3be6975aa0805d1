// Package collector implements a local debug collector: an HTTP server
// speaking the same two-endpoint wire contract as the production
// collector. Useful for integration tests and for inspecting what a
// device would upload.
package collector

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

// Config holds the collector configuration.
type Config struct {
	Host            string
	Port            int
	APIKey          string // empty accepts any key
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8686,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the debug collector.
type Server struct {
	config     Config
	logger     *slog.Logger
	httpServer *http.Server

	mu           sync.Mutex
	eventBatches []record.EventBatch
	crashBatches []record.CrashBatch
}

// New creates a collector server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{config: cfg, logger: logger}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}).Handler)
	r.Use(s.requireAPIKey)

	r.Post("/v1/events", s.handleEvents)
	r.Post("/v1/crashes", s.handleCrashes)
	return r
}

// requireAPIKey rejects requests whose X-API-Key header does not match
// the configured key. An empty configured key accepts anything, which
// is the usual debug setup.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey != "" && r.Header.Get("X-API-Key") != s.config.APIKey {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var batch record.EventBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "malformed batch", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.eventBatches = append(s.eventBatches, batch)
	s.mu.Unlock()

	s.logger.Info("event batch received",
		"session_id", batch.SessionID, "count", len(batch.Events), "os", batch.Environment.OS)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCrashes(w http.ResponseWriter, r *http.Request) {
	var batch record.CrashBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "malformed batch", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.crashBatches = append(s.crashBatches, batch)
	s.mu.Unlock()

	for _, cr := range batch.Crashes {
		s.logger.Info("crash received",
			"session_id", batch.SessionID, "thread", cr.Thread,
			"fatal", cr.IsFatal, "breadcrumbs", len(cr.Breadcrumbs))
	}
	w.WriteHeader(http.StatusAccepted)
}

// Start listens and serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("debug collector listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Handler exposes the router for httptest-based tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// EventBatches returns a copy of all event batches received so far.
func (s *Server) EventBatches() []record.EventBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.EventBatch, len(s.eventBatches))
	copy(out, s.eventBatches)
	return out
}

// CrashBatches returns a copy of all crash batches received so far.
func (s *Server) CrashBatches() []record.CrashBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.CrashBatch, len(s.crashBatches))
	copy(out, s.crashBatches)
	return out
}
