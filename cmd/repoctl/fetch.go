// cmd/repoctl/fetch.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github-repo-analytics/internal/exporter"
	"github-repo-analytics/internal/github"
)

func fetchCmd(load loader) *cobra.Command {
	var (
		repos   []string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Build an export file from the GitHub API",
		Long: `Fetch repository metadata and language breakdowns from the GitHub API and
write them in the format accepted by import-repos and ingest-clickhouse.

Examples:
  repoctl fetch --repo golang/go --repo rust-lang/rust --out repos.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if err := cfg.RequireGithub(); err != nil {
				return err
			}
			ids, err := exporter.ParseRepoIdentifiers(repos)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()

			client := github.NewClient(cfg.GithubToken, logger)
			n, err := exporter.New(client, logger).Export(cmd.Context(), ids, f)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close output file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d repositories to %s\n", n, len(ids), outPath)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&repos, "repo", nil, "repository in owner/name form (repeatable)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "repos.json", "output file")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}
