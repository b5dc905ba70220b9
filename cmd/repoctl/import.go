// cmd/repoctl/import.go
package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github-repo-analytics/internal/database"
	"github-repo-analytics/internal/importer"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/source"
)

func importReposCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "import-repos <file.json>",
		Short: "Import a repository export into PostgreSQL",
		Long: `Import a JSON array of repository records into the relational store.

Owners, languages, topics and repositories are created once per natural key,
so the same file can be imported repeatedly without duplicating rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if err := cfg.RequirePostgres(); err != nil {
				return err
			}

			raws, err := source.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			dbpool, err := pgxpool.New(ctx, cfg.DBURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer dbpool.Close()

			if err := database.Migrate(cfg.MigrationsURL, cfg.DBURL); err != nil {
				return fmt.Errorf("failed to run database migrations: %w", err)
			}

			im := importer.New(database.New(dbpool), logger, metrics.New(), importer.BatchConfig{
				RepoLanguages: cfg.BatchRepoLanguages,
				RepoTopics:    cfg.BatchRepoTopics,
				RepoUpdates:   cfg.BatchRepoUpdates,
				ProgressEvery: cfg.ProgressEvery,
			})
			summary, err := im.Run(ctx, raws)
			if err != nil {
				return fmt.Errorf("import failed after %d records: %w", summary.Processed, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new repositories from %d records (%d skipped)\n",
				summary.CreatedRepos, summary.Processed, summary.Skipped)
			return nil
		},
	}
}
