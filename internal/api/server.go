// Package api exposes workflow discovery, bundle generation and history
// over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/dabops/internal/auth"
	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/events"
	"github.com/mattjoyce/dabops/internal/state"
	"github.com/mattjoyce/dabops/internal/workflow"
	"github.com/mattjoyce/dabops/internal/workspace"
)

// BundleGenerator runs generation batches.
type BundleGenerator interface {
	Run(ctx context.Context, session *batch.Session, selections []workflow.Summary, opts batch.Options) (*batch.Result, error)
}

// HistoryLister reads persisted generation history.
type HistoryLister interface {
	List(ctx context.Context, q state.Query) ([]state.Entry, error)
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the admin credential and carries every scope.
	APIKey string
	Tokens []auth.Token
	// MaxWorkflows truncates discovery results when positive.
	MaxWorkflows int
	// Defaults seeds batch options not present in a generation request.
	Defaults batch.Options
	// Events, when set, receives batch progress and is streamed on /events.
	Events *events.Hub
}

// Server represents the HTTP API server. It owns one Session shared by all
// requests; generation requests are serialized through genSlot.
type Server struct {
	config    Config
	client    workspace.Client
	generator BundleGenerator
	history   HistoryLister
	session   *batch.Session
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	now       func() time.Time
	genSlot   chan struct{}
}

// New creates a new API server instance. history may be nil.
func New(config Config, client workspace.Client, generator BundleGenerator, history HistoryLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		client:    client,
		generator: generator,
		history:   history,
		session:   batch.NewSession(),
		logger:    logger,
		startedAt: time.Now(),
		now:       time.Now,
		genSlot:   make(chan struct{}, 1),
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen, "session_id", s.session.ID)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes(auth.ScopeWorkflowsRead)).Get("/workflows", s.handleListWorkflows)
		r.With(s.requireScopes(auth.ScopeWorkflowsRead)).Get("/workflows/{jobID}", s.handleGetWorkflow)
		r.With(s.requireScopes(auth.ScopeBundlesRead)).Get("/bundles", s.handleListBundles)
		r.With(s.requireScopes(auth.ScopeBundlesWrite)).Post("/bundles", s.handleGenerate)
		r.With(s.requireScopes(auth.ScopeBundlesRead)).Get("/bundles/archive", s.handleArchive)
		r.With(s.requireScopes(auth.ScopeHistoryRead)).Get("/history", s.handleHistory)
		if s.config.Events != nil {
			r.With(s.requireScopes(auth.ScopeEventsRead)).Get("/events", s.handleEvents)
		}
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
