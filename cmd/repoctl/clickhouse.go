// cmd/repoctl/clickhouse.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github-repo-analytics/internal/analytics"
	"github-repo-analytics/internal/config"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/source"
)

type batchInserter interface {
	InsertBatch(ctx context.Context, raws []map[string]any) (analytics.BatchResult, error)
}

type repositoryCounter interface {
	RepositoryCount(ctx context.Context) (uint64, error)
}

// ingestReport is printed once all chunks have been attempted.
type ingestReport struct {
	FileCount   int    `json:"file_count"`
	StoredCount uint64 `json:"stored_count"`
	FailedCount int    `json:"failed_chunks"`
}

func openClickHouse(ctx context.Context, cfg *config.Config) (*analytics.Store, error) {
	store, err := analytics.Open(ctx, analytics.Config{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return store, nil
}

func ingestClickhouseCmd(load loader) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest-clickhouse <file.json>",
		Short: "Append a repository export to the ClickHouse tables",
		Long: `Append a JSON array of repository records to the analytical store.

Records are inserted in chunks of --batch-size. A failed chunk is reported and
the remaining chunks are still attempted. Rows are append-only: ingesting the
same file twice stores every row twice.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("batch-size") {
				batchSize = cfg.ClickHouseBatch
			}
			if batchSize <= 0 {
				return fmt.Errorf("--batch-size must be positive, got %d", batchSize)
			}

			raws, err := source.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openClickHouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			l := analytics.NewLoader(store, logger, metrics.New())
			return runIngest(ctx, cmd.OutOrStdout(), l, store, raws, batchSize)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 5000, "records per insert batch")
	return cmd
}

// runIngest inserts raws chunk by chunk, reporting each chunk on out, and
// finishes with the file and stored repository counts.
func runIngest(ctx context.Context, out io.Writer, l batchInserter, counter repositoryCounter, raws []map[string]any, batchSize int) error {
	batches := chunks(raws, batchSize)
	report := ingestReport{FileCount: len(raws)}

	for i, batch := range batches {
		result, err := l.InsertBatch(ctx, batch)
		if err != nil {
			report.FailedCount++
			fmt.Fprintf(out, "Chunk %d/%d failed: %v\n", i+1, len(batches), err)
			continue
		}
		fmt.Fprintf(out, "Chunk %d/%d: %d repositories, %d languages, %d topics stored, %d records failed\n",
			i+1, len(batches), result.Repositories, result.Languages, result.Topics, result.Failed)
	}

	stored, err := counter.RepositoryCount(ctx)
	if err != nil {
		return err
	}
	report.StoredCount = stored

	enc := json.NewEncoder(out)
	return enc.Encode(report)
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func clearClickhouseCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-clickhouse",
		Short: "Remove every row from the ClickHouse tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openClickHouse(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Truncate(ctx); err != nil {
				return err
			}
			logger.Info("ClickHouse tables truncated", "database", cfg.ClickHouseDatabase)
			fmt.Fprintln(cmd.OutOrStdout(), "All analytical data cleared")
			return nil
		},
	}
}
