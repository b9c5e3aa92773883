// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/folio/internal/api/handler/api"
	"github.com/newthinker/folio/internal/api/handler/web"
	"github.com/newthinker/folio/internal/api/middleware"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/session"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the health checker
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	registry   *session.Registry
	sweepEvery time.Duration
	stop       chan struct{}
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	TemplatesDir   string
	APIKey         string
	SecureCookie   bool
	MetricsEnabled bool
	MetricsPath    string
	// SweepInterval controls how often idle sessions are dropped.
	SweepInterval time.Duration
}

// Dependencies holds the components the handlers serve.
type Dependencies struct {
	Registry *session.Registry
	Metrics  *metrics.Registry
	// BaseCtx bounds checks started by requests. Defaults to context.Background().
	BaseCtx context.Context
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if deps.BaseCtx == nil {
		deps.BaseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		logger:     logger,
		mux:        mux,
		registry:   deps.Registry,
		sweepEvery: cfg.SweepInterval,
		stop:       make(chan struct{}),
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	// Web UI routes
	webHandler, err := web.NewHandler(deps.BaseCtx, deps.Registry, web.Options{
		TemplatesDir: cfg.TemplatesDir,
		SecureCookie: cfg.SecureCookie,
		Logger:       s.logger.Named("web"),
	})
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}

	s.mux.HandleFunc("GET /{$}", webHandler.Index)
	s.mux.HandleFunc("POST /check", webHandler.Check)
	s.mux.HandleFunc("GET /panel", webHandler.Panel)

	// API routes
	auth := middleware.APIKeyAuth(cfg.APIKey)
	sessions := apihandler.NewSessionsHandler(deps.BaseCtx, deps.Registry, s.logger.Named("api"))

	s.mux.Handle("POST /api/v1/sessions", auth(http.HandlerFunc(sessions.Create)))
	s.mux.Handle("GET /api/v1/sessions/{id}", auth(http.HandlerFunc(sessions.Get)))
	s.mux.Handle("POST /api/v1/sessions/{id}/submit", auth(http.HandlerFunc(sessions.Submit)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if cfg.MetricsEnabled && deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, deps.Metrics.Handler())
	}

	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sweep()

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.httpServer.Shutdown(ctx)
}

// sweep periodically drops idle sessions until shutdown.
func (s *Server) sweep() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.registry.Sweep(); n > 0 {
				s.logger.Debug("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
