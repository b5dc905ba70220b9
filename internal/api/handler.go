// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-repo-analytics/internal/model"
)

const (
	defaultLimit  = 5
	maxYear       = 9999
	healthTimeout = 2 * time.Second
)

// Service is the query layer behind the HTTP endpoints.
type Service interface {
	TopLanguagesByYear(ctx context.Context, year, limit int) ([]model.LanguageSize, error)
	AnalyticsTopLanguagesByYear(ctx context.Context, year, limit int) ([]model.LanguageSize, error)
	TopLanguagesPerYear(ctx context.Context, limit int) (map[int][]model.YearLanguageStat, error)
	LanguageStatistics(ctx context.Context) ([]model.LanguageStatistic, error)
}

// Pinger is a backend whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the router settings that are not dependencies.
type Options struct {
	// DefaultYear is used when a request has no year. 0 means the current year.
	DefaultYear int
	// Checks are pinged by /health, keyed by the name reported on failure.
	Checks map[string]Pinger
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// Handler is the container for API dependencies.
type Handler struct {
	svc    Service
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(svc Service, logger *slog.Logger, opts Options) http.Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/top5-languages", h.getTopLanguages)
		r.Get("/statistics", h.getStatistics)
		r.Get("/ch-top-languages", h.getAnalyticsTopLanguages)
		r.Get("/ch-languages-by-year", h.getLanguagesByYear)
	})

	return r
}

// healthCheck pings every configured backend.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	failures := make(map[string]string)
	for name, p := range h.opts.Checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "backend", name, "error", err)
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "errors": failures})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getTopLanguages ranks languages by code size using the relational store.
// GET /v1/top5-languages?year=YYYY&limit=N
func (h *Handler) getTopLanguages(w http.ResponseWriter, r *http.Request) {
	h.topLanguages(w, r, h.svc.TopLanguagesByYear)
}

// getAnalyticsTopLanguages ranks languages by code size using the analytical store.
// GET /v1/ch-top-languages?year=YYYY&limit=N
func (h *Handler) getAnalyticsTopLanguages(w http.ResponseWriter, r *http.Request) {
	h.topLanguages(w, r, h.svc.AnalyticsTopLanguagesByYear)
}

func (h *Handler) topLanguages(w http.ResponseWriter, r *http.Request, query func(context.Context, int, int) ([]model.LanguageSize, error)) {
	year, ok := h.parseYear(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid 'year' parameter. Must be a positive integer.")
		return
	}
	limit := parseLimit(r)

	result, err := query(r.Context(), year, limit)
	if err != nil {
		h.logger.Error("Failed to get top languages", "year", year, "limit", limit, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// getLanguagesByYear returns the top languages of every year.
// GET /v1/ch-languages-by-year?limit=N
func (h *Handler) getLanguagesByYear(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	result, err := h.svc.TopLanguagesPerYear(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get languages by year", "limit", limit, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// getStatistics returns the global language report.
// GET /v1/statistics
func (h *Handler) getStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.LanguageStatistics(r.Context())
	if err != nil {
		h.logger.Error("Failed to get language statistics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(stats) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) parseYear(r *http.Request) (int, bool) {
	s := r.URL.Query().Get("year")
	if s == "" {
		if h.opts.DefaultYear > 0 {
			return h.opts.DefaultYear, true
		}
		return h.now().Year(), true
	}
	year, err := strconv.ParseInt(s, 10, 32)
	if err != nil || year <= 0 || year > maxYear {
		return 0, false
	}
	return int(year), true
}

// parseLimit falls back to the default for missing, malformed, out of range
// or non-positive values.
func parseLimit(r *http.Request) int {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return int(limit)
}
