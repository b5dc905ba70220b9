// internal/stats/service.go
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github-repo-analytics/internal/cache"
	"github-repo-analytics/internal/database"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/model"
)

const (
	DefaultTTL          = 15 * time.Minute
	DefaultAnalyticsTTL = time.Minute

	namespaceRelational = "top_languages"
	namespaceAnalytics  = "ch_top_languages"
	namespaceByYear     = "ch_languages_by_year"
)

// Relational is the relational store query the service needs.
type Relational interface {
	TopLanguagesByYear(ctx context.Context, arg database.TopLanguagesByYearParams) ([]database.TopLanguagesByYearRow, error)
}

// Analytical is the analytical store queries the service needs.
type Analytical interface {
	TopLanguagesByYearAndSize(ctx context.Context, year, limit int) ([]model.LanguageSize, error)
	LanguagesByYear(ctx context.Context) ([]model.YearLanguageStat, error)
	LanguageStatistics(ctx context.Context) ([]model.LanguageStatistic, error)
}

// Options configures cache lifetimes. Zero values select the defaults.
type Options struct {
	TTL          time.Duration
	AnalyticsTTL time.Duration
}

// Service answers the language ranking queries, caching results per
// parameter combination.
type Service struct {
	relational Relational
	analytical Analytical
	cache      cache.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	opts       Options
}

func NewService(relational Relational, analytical Analytical, store cache.Store, m *metrics.Metrics, logger *slog.Logger, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = DefaultAnalyticsTTL
	}
	return &Service{
		relational: relational,
		analytical: analytical,
		cache:      store,
		metrics:    m,
		logger:     logger,
		opts:       opts,
	}
}

// TopLanguagesByYear ranks languages by summed code size over repositories
// created in year, using the relational store.
func (s *Service) TopLanguagesByYear(ctx context.Context, year, limit int) ([]model.LanguageSize, error) {
	key := fmt.Sprintf("%s:%d:%d", namespaceRelational, year, limit)
	return cached(s, namespaceRelational, key, s.opts.TTL, func() ([]model.LanguageSize, error) {
		rows, err := s.relational.TopLanguagesByYear(ctx, database.TopLanguagesByYearParams{
			CreatedYear: int32(year),
			Limit:       int32(limit),
		})
		if err != nil {
			return nil, fmt.Errorf("query top languages: %w", err)
		}
		out := make([]model.LanguageSize, 0, len(rows))
		for _, r := range rows {
			out = append(out, model.LanguageSize{Language: r.Language, TotalSize: r.TotalSize, Year: year})
		}
		return out, nil
	})
}

// AnalyticsTopLanguagesByYear is TopLanguagesByYear answered by the
// analytical store.
func (s *Service) AnalyticsTopLanguagesByYear(ctx context.Context, year, limit int) ([]model.LanguageSize, error) {
	key := fmt.Sprintf("%s:%d:%d", namespaceAnalytics, year, limit)
	return cached(s, namespaceAnalytics, key, s.opts.AnalyticsTTL, func() ([]model.LanguageSize, error) {
		out, err := s.analytical.TopLanguagesByYearAndSize(ctx, year, limit)
		if err != nil {
			return nil, fmt.Errorf("query analytics top languages: %w", err)
		}
		return out, nil
	})
}

// TopLanguagesPerYear returns, for every year, at most limit languages
// ranked by the number of distinct repositories using them.
func (s *Service) TopLanguagesPerYear(ctx context.Context, limit int) (map[int][]model.YearLanguageStat, error) {
	key := fmt.Sprintf("%s:%d", namespaceByYear, limit)
	return cached(s, namespaceByYear, key, s.opts.AnalyticsTTL, func() (map[int][]model.YearLanguageStat, error) {
		rows, err := s.analytical.LanguagesByYear(ctx)
		if err != nil {
			return nil, fmt.Errorf("query languages by year: %w", err)
		}
		return topPerYear(rows, limit), nil
	})
}

// LanguageStatistics returns the global language report. It is not cached.
func (s *Service) LanguageStatistics(ctx context.Context) ([]model.LanguageStatistic, error) {
	out, err := s.analytical.LanguageStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("query language statistics: %w", err)
	}
	return out, nil
}

// topPerYear keeps the first limit rows of each year. rows must already be
// ordered by rank within a year.
func topPerYear(rows []model.YearLanguageStat, limit int) map[int][]model.YearLanguageStat {
	out := make(map[int][]model.YearLanguageStat)
	for _, r := range rows {
		if len(out[r.Year]) < limit {
			out[r.Year] = append(out[r.Year], r)
		}
	}
	return out
}

// cached returns the value stored under key or computes and stores it.
// Failed computations are not cached.
func cached[T any](s *Service, namespace, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.metrics.CacheRequests.WithLabelValues(namespace, "hit").Inc()
			return typed, nil
		}
	}
	s.metrics.CacheRequests.WithLabelValues(namespace, "miss").Inc()

	v, err := compute()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v, ttl)
	s.logger.Debug("Cached query result", "key", key, "ttl", ttl)
	return v, nil
}
