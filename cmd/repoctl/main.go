// cmd/repoctl/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github-repo-analytics/internal/config"
	"github-repo-analytics/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envDir string

	rootCmd := &cobra.Command{
		Use:           "repoctl",
		Short:         "Administrative commands for the repository analytics stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "directory holding an optional .env file")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.LoadConfig(envDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, _ := logging.New(os.Stderr, cfg.LogLevel)
		slog.SetDefault(logger)
		return cfg, logger, nil
	}

	rootCmd.AddCommand(importReposCmd(load))
	rootCmd.AddCommand(ingestClickhouseCmd(load))
	rootCmd.AddCommand(clearClickhouseCmd(load))
	rootCmd.AddCommand(fetchCmd(load))
	return rootCmd
}

// loader resolves configuration and logging for a command at run time.
type loader func() (*config.Config, *slog.Logger, error)
