// Package httpapi exposes the pipeline over HTTP: operational endpoints
// (health, readiness, metrics) plus a small JSON API for sources, series,
// forecasts, and CSV export.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/forecast"
	"github.com/epiforecast/epi-pipeline/internal/pipeline"
)

// Server exposes the pipeline's HTTP surface.
type Server struct {
	httpServer *http.Server
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, p *pipeline.Pipeline, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // forecasts and exports can run long
			IdleTimeout:  60 * time.Second,
		},
		pipeline: p,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/sources", s.handleSources)
	mux.HandleFunc("GET /api/v1/sources/{source}/locations", s.handleLocations)
	mux.HandleFunc("GET /api/v1/series", s.handleSeries)
	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pipeline.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type sourceInfo struct {
	Name    string              `json:"name"`
	Targets []domain.TargetKind `json:"targets"`
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	registry := s.pipeline.Registry()
	sources := make([]sourceInfo, 0, registry.Len())
	for _, name := range registry.Names() {
		src, err := registry.Get(name)
		if err != nil {
			continue
		}
		sources = append(sources, sourceInfo{Name: name, Targets: src.Targets()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	src, err := s.pipeline.Registry().Get(r.PathValue("source"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":    src.Name(),
		"locations": src.Locations(),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	req.SkipForecast = true

	result, err := s.pipeline.Process(r.Context(), req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"series": result.Series,
		"stats":  result.Stats,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseRequest(w, r)
	if !ok {
		return
	}
	if h := r.URL.Query().Get("horizon"); h != "" {
		horizon, err := strconv.Atoi(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("horizon must be an integer number of days"))
			return
		}
		req.Horizon = horizon
	}

	result, err := s.pipeline.Process(r.Context(), req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"series":         result.Series,
		"stats":          result.Stats,
		"forecast":       result.Forecast,
		"forecast_stats": result.ForecastStats,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sourceName := r.URL.Query().Get("source")
	if sourceName == "" {
		writeError(w, http.StatusBadRequest, errors.New("source is required"))
		return
	}
	target, err := domain.ParseTargetKind(r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.pipeline.Registry().Get(sourceName); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	table, failures, err := s.pipeline.ExportAll(r.Context(), sourceName, target)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		"attachment; filename=\""+sourceName+"_"+string(target)+".csv\"")
	// Skipped locations ride along as headers so the CSV body stays a clean
	// rectangle.
	if len(failures) > 0 {
		skipped := make([]string, len(failures))
		for i, f := range failures {
			skipped[i] = f.Location
		}
		w.Header().Set("X-Export-Failures", strconv.Itoa(len(failures)))
		w.Header().Set("X-Failed-Locations", strings.Join(skipped, ","))
	}
	if err := table.WriteCSV(w); err != nil {
		s.logger.Warn("export write failed", "error", err)
	}
}

// parseRequest pulls the common source/location/target query parameters.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	q := r.URL.Query()
	sourceName, location := q.Get("source"), q.Get("location")
	if sourceName == "" || location == "" {
		writeError(w, http.StatusBadRequest, errors.New("source and location are required"))
		return pipeline.Request{}, false
	}
	target, err := domain.ParseTargetKind(q.Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return pipeline.Request{}, false
	}
	if _, err := s.pipeline.Registry().Get(sourceName); err != nil {
		writeError(w, http.StatusNotFound, err)
		return pipeline.Request{}, false
	}
	return pipeline.Request{
		ID:       uuid.New(),
		Source:   sourceName,
		Location: location,
		Target:   target,
	}, true
}

// writeRunError maps pipeline failures to HTTP statuses: missing things are
// 404, data too poor to serve is 422, a bad horizon is 400, the rest 500.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var (
		notFound     *domain.NotFoundError
		schema       *domain.SchemaError
		empty        *domain.EmptyResultError
		insufficient *domain.InsufficientDataError
		model        *domain.ModelError
		horizon      *forecast.HorizonError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &horizon):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &schema), errors.As(err, &empty), errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &model):
		writeError(w, http.StatusInternalServerError, err)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
