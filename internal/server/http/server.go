// Package httpserver provides the HTTP REST API server for the petition
// document service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/database"
	"github.com/casewright/petition-service/internal/observability"
	"github.com/casewright/petition-service/internal/progress"
	"github.com/casewright/petition-service/internal/repository"
	"github.com/casewright/petition-service/internal/temporal"
)

// WorkflowClient defines the workflow operations used by the HTTP server.
// Satisfied by *temporal.PetitionWorkflowClient.
type WorkflowClient interface {
	StartPetitionWorkflow(ctx context.Context, workflowFunc interface{}, input temporal.PetitionWorkflowInput) (workflowID, runID string, err error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	Health(ctx context.Context) error
}

// ProgressReader reads progress snapshots, durable store first with in-memory
// fallback. Satisfied by *progress.Tracker.
type ProgressReader interface {
	Set(ctx context.Context, snapshot progress.Snapshot)
	Get(ctx context.Context, caseID string) (progress.Snapshot, progress.Source, error)
}

// Config carries the HTTP listener settings.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// AuthToken enables bearer-token auth on the API routes when non-empty.
	AuthToken string
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	workflowClient WorkflowClient
	workflowFunc   interface{} // The Temporal workflow function reference.
	caseRepo       repository.CaseRepository
	documentRepo   repository.DocumentRepository
	tracker        ProgressReader
	db             *database.DB
	metrics        *observability.Metrics
	validate       *validator.Validate
	logger         zerolog.Logger
	authToken      string
}

// NewServer wires the REST API with its dependencies.
// workflowFunc is the Temporal workflow function reference
// (e.g., workflows.PetitionWorkflow) passed to StartPetitionWorkflow.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewServer(
	cfg Config,
	workflowClient WorkflowClient,
	workflowFunc interface{},
	caseRepo repository.CaseRepository,
	documentRepo repository.DocumentRepository,
	tracker ProgressReader,
	db *database.DB,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		workflowClient: workflowClient,
		workflowFunc:   workflowFunc,
		caseRepo:       caseRepo,
		documentRepo:   documentRepo,
		tracker:        tracker,
		db:             db,
		metrics:        metrics,
		validate:       validator.New(),
		logger:         logger.With().Str("component", "http-server").Logger(),
		authToken:      cfg.AuthToken,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter assembles middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health probes skip authentication.
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if s.authToken != "" {
			r.Use(bearerAuthMiddleware(s.authToken))
		}

		r.Post("/cases", s.createCase)
		r.Get("/cases", s.listCases)
		r.Get("/cases/{caseID}", s.getCase)
		r.Delete("/cases/{caseID}", s.cancelCase)
		r.Get("/cases/{caseID}/progress", s.getCaseProgress)
		r.Get("/cases/{caseID}/documents", s.getCaseDocuments)
	})

	return r
}

// Router returns the HTTP handler, exposed for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including Temporal connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}

	if err := s.workflowClient.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": "healthy",
			"temporal": "unhealthy",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
		"temporal": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
