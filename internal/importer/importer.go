// internal/importer/importer.go
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github-repo-analytics/internal/database"
	custom_errors "github-repo-analytics/internal/errors"
	"github-repo-analytics/internal/identity"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/model"
	"github-repo-analytics/internal/normalize"
)

const sinkName = "postgres"

// errSkipRecord marks a record that was rejected on its own without
// affecting the rest of the run.
var errSkipRecord = errors.New("record skipped")

// BatchConfig holds the buffer thresholds of a relational import.
type BatchConfig struct {
	RepoLanguages int
	RepoTopics    int
	RepoUpdates   int
	ProgressEvery int
}

// DefaultBatchConfig returns the thresholds used when none are configured.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		RepoLanguages: 1000,
		RepoTopics:    1000,
		RepoUpdates:   500,
		ProgressEvery: 500,
	}
}

// Summary describes the outcome of one Run.
type Summary struct {
	Processed    int
	CreatedRepos int
	Skipped      int
}

// Importer loads export records into the relational schema. Owners,
// languages, topics and repositories are inserted once per natural key;
// existing repositories are only patched for their primary language, star
// count and push time. Edge rows are buffered and written in bulk.
type Importer struct {
	q       database.Querier
	logger  *slog.Logger
	metrics *metrics.Metrics
	batch   BatchConfig
}

// New creates an Importer. Zero thresholds are replaced by the defaults.
func New(q database.Querier, logger *slog.Logger, m *metrics.Metrics, batch BatchConfig) *Importer {
	def := DefaultBatchConfig()
	if batch.RepoLanguages <= 0 {
		batch.RepoLanguages = def.RepoLanguages
	}
	if batch.RepoTopics <= 0 {
		batch.RepoTopics = def.RepoTopics
	}
	if batch.RepoUpdates <= 0 {
		batch.RepoUpdates = def.RepoUpdates
	}
	if batch.ProgressEvery <= 0 {
		batch.ProgressEvery = def.ProgressEvery
	}
	return &Importer{q: q, logger: logger, metrics: m, batch: batch}
}

// Run imports raws in order. It returns early only on backend failures;
// individual bad records are skipped and counted.
func (im *Importer) Run(ctx context.Context, raws []map[string]any) (Summary, error) {
	var summary Summary

	ids := identity.New(im.q)
	if err := ids.Preload(ctx); err != nil {
		return summary, err
	}
	owners, languages, topics, repos := ids.Sizes()
	im.logger.Info("Caches loaded", "owners", owners, "languages", languages, "topics", topics, "repos", repos)

	buf := newBuffers()
	for idx, raw := range raws {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Processed++
		im.metrics.RecordsProcessed.WithLabelValues(sinkName).Inc()

		created, err := im.importRecord(ctx, ids, buf, normalize.Record(raw))
		switch {
		case errors.Is(err, errSkipRecord):
			summary.Skipped++
			im.metrics.RecordErrors.WithLabelValues(sinkName).Inc()
		case err != nil:
			return summary, im.abort(ctx, buf, err)
		case created:
			summary.CreatedRepos++
		}

		if buf.full(im.batch) {
			if err := im.flush(ctx, buf); err != nil {
				return summary, err
			}
		}

		if (idx+1)%im.batch.ProgressEvery == 0 {
			im.logger.Info("Import progress", "processed", idx+1, "total", len(raws))
		}
	}

	if !buf.empty() {
		if err := im.flush(ctx, buf); err != nil {
			return summary, err
		}
	}

	im.logger.Info("Import done", "created_repos", summary.CreatedRepos, "processed", summary.Processed, "skipped", summary.Skipped)
	return summary, nil
}

// abort writes what earlier records staged before a fatal error ends the run.
func (im *Importer) abort(ctx context.Context, buf *buffers, err error) error {
	if buf.empty() {
		return err
	}
	if flushErr := im.flush(ctx, buf); flushErr != nil {
		im.logger.Error("Failed to flush staged rows before aborting", "error", flushErr)
		return errors.Join(err, flushErr)
	}
	return err
}

// importRecord resolves every entity a record references and stages its
// edge rows and repository patch. It reports whether the repository was new.
func (im *Importer) importRecord(ctx context.Context, ids *identity.Cache, buf *buffers, rec model.Record) (bool, error) {
	logger := im.logger.With("repo", rec.NameWithOwner)
	if rec.OwnerLogin == "" || rec.NameWithOwner == "" {
		logger.Warn("Record has no owner or repository name, skipping")
		return false, errSkipRecord
	}

	owner, err := ids.Owner(ctx, rec.OwnerLogin)
	if err != nil {
		return false, fmt.Errorf("resolve owner: %w", err)
	}

	repo, created, err := im.resolveRepository(ctx, ids, owner, rec)
	if err != nil {
		return false, err
	}

	if rec.PrimaryLanguage != "" {
		lang, err := ids.Language(ctx, rec.PrimaryLanguage)
		switch {
		case database.IsRowRejected(err):
			logger.Warn("Primary language rejected, leaving it unchanged", "language", rec.PrimaryLanguage, "error", err)
		case err != nil:
			return created, fmt.Errorf("resolve primary language: %w", err)
		default:
			stagePrimaryLanguage(buf, repo, lang, rec)
		}
	}

	for _, entry := range rec.Languages {
		if entry.Name == "" {
			continue
		}
		lang, err := ids.Language(ctx, entry.Name)
		if database.IsRowRejected(err) {
			logger.Warn("Language rejected, skipping edge", "language", entry.Name, "error", err)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("resolve language: %w", err)
		}
		buf.repoLanguages = append(buf.repoLanguages, database.RepoLanguage{
			RepoID:     repo.ID,
			LanguageID: lang.ID,
			Size:       entry.Size,
		})
	}

	for _, entry := range rec.Topics {
		if entry.Name == "" {
			continue
		}
		topic, err := ids.Topic(ctx, entry.Name)
		if database.IsRowRejected(err) {
			logger.Warn("Topic rejected, skipping edge", "topic", entry.Name, "error", err)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("resolve topic: %w", err)
		}
		buf.repoTopics = append(buf.repoTopics, database.RepoTopic{RepoID: repo.ID, TopicID: topic.ID})
	}

	return created, nil
}

// stagePrimaryLanguage queues a patch when lang differs from the primary
// language stored or already staged for repo.
func stagePrimaryLanguage(buf *buffers, repo database.Repo, lang database.Language, rec model.Record) {
	current := repo.PrimaryLanguageID
	if staged, ok := buf.stagedUpdate(repo.ID); ok {
		current = staged.PrimaryLanguageID
	}
	if !current.Valid || current.Int64 != lang.ID {
		buf.stageUpdate(database.UpdateRepositoryParams{
			ID:                repo.ID,
			PrimaryLanguageID: pgtype.Int8{Int64: lang.ID, Valid: true},
			Stars:             toInt32(rec.Stars),
			PushedAt:          toTimestamptz(rec.PushedAt),
		})
	}
}

// resolveRepository returns the stored repository for rec, inserting it on
// first sight. Known repositories are re-read in full because the identity
// cache only holds their ids.
func (im *Importer) resolveRepository(ctx context.Context, ids *identity.Cache, owner database.Owner, rec model.Record) (database.Repo, bool, error) {
	if id, ok := ids.RepoID(rec.NameWithOwner); ok {
		repo, err := im.q.GetRepositoryByID(ctx, id)
		if err != nil {
			return database.Repo{}, false, fmt.Errorf("load repository %s: %w", rec.NameWithOwner, err)
		}
		return repo, false, nil
	}

	repo, err := im.q.CreateRepository(ctx, createRepositoryParams(owner.ID, rec))
	if err == nil {
		ids.PutRepo(repo.NameWithOwner, repo.ID)
		return repo, true, nil
	}

	if !database.IsUniqueViolation(err) {
		if database.IsRowRejected(err) {
			im.logger.Error("Failed to create repository", "repo", rec.NameWithOwner, "error", err)
			return database.Repo{}, false, errSkipRecord
		}
		return database.Repo{}, false, fmt.Errorf("create repository %s: %w", rec.NameWithOwner, err)
	}

	repo, err = im.q.GetRepositoryByNameWithOwner(ctx, rec.NameWithOwner)
	if err != nil {
		im.logger.Error("Failed to create repository", "repo", rec.NameWithOwner, "error", err)
		return database.Repo{}, false, errSkipRecord
	}
	ids.PutRepo(repo.NameWithOwner, repo.ID)
	return repo, false, nil
}

// flush writes all three buffers and clears them, whatever the outcome.
func (im *Importer) flush(ctx context.Context, buf *buffers) error {
	defer buf.reset()

	var errs []error
	if len(buf.repoLanguages) > 0 {
		errs = append(errs, writeRows(ctx, im, "repo_languages", buf.repoLanguages, im.q.CreateRepoLanguages, im.q.CreateRepoLanguage))
	}
	if len(buf.repoTopics) > 0 {
		errs = append(errs, writeRows(ctx, im, "repo_topics", buf.repoTopics, im.q.CreateRepoTopics, im.q.CreateRepoTopic))
	}
	if updates := buf.updates(); len(updates) > 0 {
		errs = append(errs, writeRows(ctx, im, "repos", updates, im.q.UpdateRepositories, im.q.UpdateRepository))
	}
	return errors.Join(errs...)
}

// writeRows tries one bulk statement and falls back to single-row writes.
// Unique violations in the fallback are expected duplicates and are ignored;
// other row failures are logged. Only a buffer in which every row failed is
// reported as an error.
func writeRows[T any](
	ctx context.Context,
	im *Importer,
	name string,
	rows []T,
	bulk func(context.Context, []T) (int64, error),
	single func(context.Context, T) error,
) error {
	n, err := bulk(ctx, rows)
	if err == nil {
		im.metrics.RowsWritten.WithLabelValues(name).Add(float64(n))
		im.logger.Debug("Bulk write succeeded", "buffer", name, "rows", n)
		return nil
	}

	im.logger.Warn("Bulk write failed, retrying row by row", "buffer", name, "rows", len(rows), "error", err)
	im.metrics.FlushFallbacks.WithLabelValues(name).Inc()

	var written, duplicates, failed int
	var lastErr error
	for _, row := range rows {
		err := single(ctx, row)
		switch {
		case err == nil:
			written++
		case database.IsUniqueViolation(err):
			duplicates++
		default:
			failed++
			lastErr = err
			im.logger.Debug("Row write failed", "buffer", name, "error", err)
		}
	}
	im.metrics.RowsWritten.WithLabelValues(name).Add(float64(written))
	im.logger.Info("Row-by-row write finished", "buffer", name, "written", written, "duplicates", duplicates, "failed", failed)

	if failed == len(rows) {
		return fmt.Errorf("%w: %s: %w", custom_errors.ErrFlushFailed, name, lastErr)
	}
	return nil
}

func createRepositoryParams(ownerID int64, rec model.Record) database.CreateRepositoryParams {
	p := database.CreateRepositoryParams{
		OwnerID:                  ownerID,
		Name:                     rec.Name,
		NameWithOwner:            rec.NameWithOwner,
		Description:              toText(rec.Description),
		Stars:                    toInt32(rec.Stars),
		Forks:                    toInt32(rec.Forks),
		Watchers:                 toInt32(rec.Watchers),
		Issues:                   toInt32(rec.Issues),
		PullRequests:             toInt32(rec.PullRequests),
		DiskUsageKb:              rec.DiskUsageKB,
		AssignableUserCount:      toInt32(rec.AssignableUserCount),
		DefaultBranchCommitCount: toInt32(rec.DefaultBranchCommitCount),
		IsFork:                   rec.IsFork,
		IsArchived:               rec.IsArchived,
		ForkingAllowed:           rec.ForkingAllowed,
		CodeOfConduct:            toText(rec.CodeOfConduct),
		License:                  toText(rec.License),
		CreatedAt:                toTimestamptz(rec.CreatedAt),
		PushedAt:                 toTimestamptz(rec.PushedAt),
	}
	if rec.CreatedYear != nil {
		p.CreatedYear = pgtype.Int4{Int32: int32(*rec.CreatedYear), Valid: true}
	}
	if rec.LanguageCount != nil {
		p.LanguageCount = pgtype.Int4{Int32: toInt32(*rec.LanguageCount), Valid: true}
	}
	return p
}

func toText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func toInt32(n int64) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}
