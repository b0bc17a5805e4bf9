// Package server exposes the feed WebSocket endpoint next to the health,
// metrics, status and token API routes on a single HTTP listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"token-risk-monitor/internal/ingestion"
	"token-risk-monitor/internal/logging"
	"token-risk-monitor/internal/observability"
)

// RefreshStats reports progress of the periodic ranking pass.
type RefreshStats interface {
	LastRun() time.Time
	Runs() int
}

// Options contains configuration for creating a Server.
type Options struct {
	Addr            string
	WSPath          string // Default: /ws
	WS              WSConfig
	ShutdownTimeout time.Duration // Default: 30s
	MaxConnections  int           // 0 = unlimited

	Ingester *ingestion.Ingester
	API      http.Handler // mounted under /api/ when set
	Refresh  RefreshStats // optional, reported by /status
	Scheme   string       // reported by /status

	Logger *logrus.Logger
}

// Server is the HTTP and WebSocket front of the service.
type Server struct {
	opts      Options
	manager   *ConnectionManager
	handler   http.Handler
	logger    *logrus.Entry
	startedAt time.Time
}

// New creates a new Server.
func New(opts Options) *Server {
	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if opts.Ingester == nil {
		opts.Ingester = ingestion.NewIngester(ingestion.IngesterOptions{Logger: opts.Logger})
	}

	s := &Server{
		opts:      opts,
		manager:   NewConnectionManager(opts.MaxConnections),
		logger:    logging.Component(opts.Logger, "server"),
		startedAt: time.Now(),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Connections returns the connection manager.
func (s *Server) Connections() *ConnectionManager {
	return s.manager
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	mux.Handle(s.opts.WSPath, NewWSHandler(s.opts.WS, s.opts.Ingester, s.manager, s.opts.Logger))

	if s.opts.API != nil {
		mux.Handle("/api/", s.opts.API)
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open feed connections close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.opts.Addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return <-errCh
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string           `json:"status"`
	Uptime       string           `json:"uptime"`
	StartedAt    time.Time        `json:"started_at"`
	Scheme       string           `json:"scheme,omitempty"`
	RegistrySize int              `json:"registry_size"`
	Connections  []ConnectionInfo `json:"connections"`
	LastRefresh  *time.Time       `json:"last_refresh,omitempty"`
	RefreshRuns  int              `json:"refresh_runs"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt:   s.startedAt,
		Scheme:      s.opts.Scheme,
		Connections: s.manager.List(),
	}
	resp.RegistrySize = s.opts.Ingester.Registry().Len()
	if s.opts.Refresh != nil {
		resp.RefreshRuns = s.opts.Refresh.Runs()
		if last := s.opts.Refresh.LastRun(); !last.IsZero() {
			resp.LastRefresh = &last
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
