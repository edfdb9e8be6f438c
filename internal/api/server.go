// Package api exposes the scrape pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/types"
)

// Server is the HTTP front end. Each POST /reviews request runs one
// synchronous scrape session; the response body is the complete result.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	scraper *Scraper
	logger  *slog.Logger
	metrics *observability.Metrics

	httpSrv *http.Server
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg *config.Config, scraper *Scraper, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		scraper: scraper,
		logger:  logger.With("component", "api_server"),
		metrics: metrics,
	}

	s.registerRoutes()
	return s
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		return s.httpSrv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /reviews", s.handleReviews)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.HandlerFor(
			s.metrics.Registry,
			promhttp.HandlerOpts{},
		))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.errorResponse(w, http.StatusBadRequest, "invalid_request", "missing url query parameter")
		return
	}
	if err := config.ValidateURL(target); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	s.logger.Info("scrape requested", "url", target)

	result, err := s.scraper.Scrape(r.Context(), target)
	if err != nil {
		kind, status := classify(err)
		s.logger.Error("scrape failed", "url", target, "kind", kind, "error", err)
		s.errorResponse(w, status, kind, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// classify maps a pipeline error onto the wire error taxonomy.
func classify(err error) (kind string, status int) {
	var (
		renderErr  *types.RenderError
		inferErr   *types.InferenceError
		modelErr   *types.ModelError
		extractErr *types.ExtractionError
	)
	switch {
	case errors.As(err, &renderErr):
		return "render_error", http.StatusBadGateway
	case errors.As(err, &inferErr), errors.As(err, &modelErr):
		return "inference_error", http.StatusBadGateway
	case errors.As(err, &extractErr):
		return "extraction_error", http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return "canceled", http.StatusBadGateway
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, kind, message string) {
	s.jsonResponse(w, status, errorBody{ErrorKind: kind, Message: message})
}
