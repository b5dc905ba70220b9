// internal/analytics/loader.go
package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/normalize"
)

const (
	sinkName = "clickhouse"

	// maxRecordErrors is the number of failed records a batch tolerates
	// before it stops transforming.
	maxRecordErrors = 100
	progressEvery   = 10000
)

// Writer appends rows to the three analytical tables.
type Writer interface {
	InsertRepositories(ctx context.Context, rows []RepositoryRow) error
	InsertLanguages(ctx context.Context, rows []LanguageRow) error
	InsertTopics(ctx context.Context, rows []TopicRow) error
}

// BatchResult describes one InsertBatch call.
type BatchResult struct {
	Records      int
	Repositories int
	Languages    int
	Topics       int
	Failed       int
	// Aborted is set when the batch hit the error ceiling and later records
	// were not looked at.
	Aborted bool
}

// Loader turns raw export records into analytical rows and appends them.
type Loader struct {
	writer  Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLoader(writer Writer, logger *slog.Logger, m *metrics.Metrics) *Loader {
	return &Loader{writer: writer, logger: logger, metrics: m}
}

// InsertBatch transforms raws and performs one bulk insert per table. A
// failure of the repositories insert is returned; failures of the language
// and topic inserts are only logged.
func (l *Loader) InsertBatch(ctx context.Context, raws []map[string]any) (BatchResult, error) {
	result := BatchResult{Records: len(raws)}
	if len(raws) == 0 {
		l.logger.Warn("Empty batch, nothing to insert")
		return result, nil
	}

	var (
		repos     = make([]RepositoryRow, 0, len(raws))
		languages []LanguageRow
		topics    []TopicRow
	)
	for idx, raw := range raws {
		l.metrics.RecordsProcessed.WithLabelValues(sinkName).Inc()

		rec, err := normalize.StrictRecord(raw)
		if err != nil {
			result.Failed++
			l.metrics.RecordErrors.WithLabelValues(sinkName).Inc()
			l.logger.Error("Failed to transform record", "repo", nameOf(raw), "error", err)
			if result.Failed > maxRecordErrors {
				l.logger.Error("Too many errors, stopping batch", "failed", result.Failed)
				result.Aborted = true
				break
			}
			continue
		}

		repo, langRows, topicRows := buildRows(rec)
		repos = append(repos, repo)
		languages = append(languages, langRows...)
		topics = append(topics, topicRows...)

		if (idx+1)%progressEvery == 0 {
			l.logger.Info("Transform progress", "processed", idx+1, "total", len(raws))
		}
	}

	if len(repos) > 0 {
		l.logger.Info("Inserting repositories", "rows", len(repos))
		if err := l.writer.InsertRepositories(ctx, repos); err != nil {
			return result, fmt.Errorf("insert repositories: %w", err)
		}
		result.Repositories = len(repos)
		l.metrics.RowsWritten.WithLabelValues(tableRepositories).Add(float64(len(repos)))
	}

	if len(languages) > 0 {
		if err := l.writer.InsertLanguages(ctx, languages); err != nil {
			l.logger.Warn("Failed to insert language rows", "rows", len(languages), "error", err)
		} else {
			result.Languages = len(languages)
			l.metrics.RowsWritten.WithLabelValues(tableLanguages).Add(float64(len(languages)))
		}
	}

	if len(topics) > 0 {
		if err := l.writer.InsertTopics(ctx, topics); err != nil {
			l.logger.Warn("Failed to insert topic rows", "rows", len(topics), "error", err)
		} else {
			result.Topics = len(topics)
			l.metrics.RowsWritten.WithLabelValues(tableTopics).Add(float64(len(topics)))
		}
	}

	l.logger.Info("Batch inserted",
		"repositories", result.Repositories,
		"languages", result.Languages,
		"topics", result.Topics,
		"failed", result.Failed,
	)
	return result, nil
}

func nameOf(raw map[string]any) string {
	if s, ok := raw["nameWithOwner"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}
