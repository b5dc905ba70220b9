// internal/exporter/exporter.go
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	custom_errors "github-repo-analytics/internal/errors"
	"github-repo-analytics/internal/model"
)

const (
	// Number of repositories fetched in parallel
	concurrency = 5
)

// Fetcher returns the export entry of one repository.
type Fetcher interface {
	FetchExportRecord(ctx context.Context, owner, name string) (model.ExportRecord, error)
}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

func (id RepoIdentifier) String() string {
	return id.Owner + "/" + id.Name
}

// ParseRepoIdentifiers validates a list of "owner/name" strings.
func ParseRepoIdentifiers(repos []string) ([]RepoIdentifier, error) {
	identifiers := make([]RepoIdentifier, 0, len(repos))
	for _, r := range repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}

// Exporter writes bulk export files in the ingestion input format.
type Exporter struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(fetcher Fetcher, logger *slog.Logger) *Exporter {
	return &Exporter{fetcher: fetcher, logger: logger}
}

// Export fetches every repository concurrently and writes them to w as one
// JSON array, in input order. Repositories that cannot be fetched are logged
// and left out; the number written is returned.
func (e *Exporter) Export(ctx context.Context, repos []RepoIdentifier, w io.Writer) (int, error) {
	e.logger.Info("Starting export", "repos", len(repos), "concurrency", concurrency)

	results := make([]*model.ExportRecord, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range repos {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rec, err := e.fetcher.FetchExportRecord(gctx, id.Owner, id.Name)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				e.logger.Error("Failed to fetch repository", "owner", id.Owner, "repo", id.Name, "error", err)
				return nil
			}
			results[i] = &rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("export cancelled: %w", err)
	}

	records := make([]model.ExportRecord, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}

	e.logger.Info("Export finished", "written", len(records), "failed", len(repos)-len(records))
	return len(records), nil
}
