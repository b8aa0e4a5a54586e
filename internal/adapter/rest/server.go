// Package rest exposes the engine's query API: latest and historical
// derived indices, risk classifications, trend and data-quality
// analytics, and the anomaly detection endpoints, alongside the
// operational health and metrics routes.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/couchcryptid/enviro-risk-engine/internal/anomaly"
	"github.com/couchcryptid/enviro-risk-engine/internal/domain"
	"github.com/couchcryptid/enviro-risk-engine/internal/registry"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// History is the readings query surface the API serves from.
type History interface {
	Latest(ctx context.Context) (domain.ScoredReading, error)
	Range(ctx context.Context, from, to time.Time) ([]domain.ScoredReading, error)
	All(ctx context.Context) ([]domain.ScoredReading, error)
	Count(ctx context.Context) (int64, error)
}

// Server hosts the REST API.
type Server struct {
	httpServer *http.Server
	history    History
	registry   *registry.Registry
	logger     *slog.Logger
}

// NewServer wires the chi router and returns the server.
func NewServer(addr string, ready ReadinessChecker, history History, reg *registry.Registry, corsOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		history:  history,
		registry: reg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/indices/latest", s.handleLatestIndices)
		r.Get("/indices", s.handleIndicesRange)
		r.Get("/risk", s.handleRisk)
		r.Get("/trends", s.handleTrends)
		r.Get("/quality", s.handleQuality)
		r.Get("/anomalies/model", s.handleModel)
		r.Post("/anomalies/detect", s.handleDetect)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		render.JSON(w, r, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatestIndices(w http.ResponseWriter, r *http.Request) {
	latest, err := s.history.Latest(r.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderError(w, r, http.StatusNotFound, "no readings recorded yet")
			return
		}
		s.serverError(w, r, err)
		return
	}
	render.JSON(w, r, latest)
}

func (s *Server) handleIndicesRange(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from", time.Time{})
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r, "to", time.Now().UTC())
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		return
	}

	readings, err := s.history.Range(r.Context(), from, to)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	indices := make([]domain.DerivedIndices, len(readings))
	for i, reading := range readings {
		indices[i] = reading.Indices
	}
	render.JSON(w, r, map[string]any{"count": len(indices), "indices": indices})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	latest, err := s.history.Latest(r.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderError(w, r, http.StatusNotFound, "no readings recorded yet")
			return
		}
		s.serverError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"date":    latest.Date,
		"indices": latest.Indices,
		"risks":   latest.Risks,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = domain.MetricAQI
	}
	days := cast.ToInt(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}

	to := time.Now().UTC()
	readings, err := s.history.Range(r.Context(), to.AddDate(0, 0, -days), to)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	series := make([]float64, 0, len(readings))
	for _, reading := range readings {
		switch metric {
		case domain.MetricAQI:
			series = append(series, reading.Indices.AQI)
		case domain.MetricFloodRisk:
			series = append(series, reading.Indices.FloodRisk)
		case domain.MetricHeatIndex:
			series = append(series, reading.Indices.HeatIndexC)
		default:
			renderError(w, r, http.StatusBadRequest, "unknown metric")
			return
		}
	}

	render.JSON(w, r, map[string]any{
		"metric": metric,
		"days":   days,
		"growth": domain.AnalyzeGrowth(series),
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	readings, err := s.history.All(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	var latest time.Time
	populated := 0
	totalCells := 0
	for _, reading := range readings {
		if reading.Date.After(latest) {
			latest = reading.Date
		}
		for _, v := range reading.Cleaned.FieldMap() {
			totalCells++
			if v != 0 {
				populated++
			}
		}
	}

	render.JSON(w, r, domain.DataQuality(len(readings), totalCells, populated, latest))
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	inf, err := s.registry.Current()
	if err != nil {
		renderError(w, r, http.StatusNotFound, "no trained detector available")
		return
	}

	a := inf.Artifact()
	render.JSON(w, r, map[string]any{
		"run_id":        a.RunID,
		"created_at":    a.CreatedAt,
		"detector":      a.Detector,
		"features":      a.Features,
		"evaluation":    a.Evaluation,
		"training_rows": a.TrainingRows,
	})
}

// detectRequest is the POST body for the batch detection endpoint.
type detectRequest struct {
	Readings []map[string]float64 `json:"readings"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	inf, err := s.registry.Current()
	if err != nil {
		renderError(w, r, http.StatusServiceUnavailable, "no trained detector available")
		return
	}

	var req detectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Readings) == 0 {
		renderError(w, r, http.StatusBadRequest, "readings is required")
		return
	}

	report, err := inf.DetectBatch(req.Readings)
	if err != nil {
		var mismatch *anomaly.FeatureMismatchError
		if errors.As(err, &mismatch) {
			renderError(w, r, http.StatusUnprocessableEntity, mismatch.Error())
			return
		}
		s.serverError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	renderError(w, r, http.StatusInternalServerError, "internal error")
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func parseDateParam(r *http.Request, key string, def time.Time) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", s)
}
