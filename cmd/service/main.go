// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github-repo-analytics/internal/analytics"
	"github-repo-analytics/internal/api"
	"github-repo-analytics/internal/cache"
	"github-repo-analytics/internal/config"
	"github-repo-analytics/internal/database"
	"github-repo-analytics/internal/logging"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/stats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logger, logLevel := logging.New(os.Stdout, "info")
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.RequirePostgres(); err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize stores and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("Database connection established")

	if err := database.Migrate(cfg.MigrationsURL, cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	chStore, err := analytics.Open(ctx, analytics.Config{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	defer chStore.Close()
	logger.Info("ClickHouse connection established", "addr", cfg.ClickHouseAddr)

	// 5. Initialize application components
	m := metrics.New()
	svc := stats.NewService(database.New(dbpool), chStore, cache.NewMemory(), m, logger, stats.Options{
		TTL:          cfg.CacheTTL,
		AnalyticsTTL: cfg.CHCacheTTL,
	})
	router := api.NewRouter(svc, logger, api.Options{
		DefaultYear: cfg.DefaultYear,
		Checks: map[string]api.Pinger{
			"postgres":   dbpool,
			"clickhouse": chStore,
		},
		Metrics: m.Handler(),
	})

	// 6. Start the HTTP server in a separate goroutine
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 7. Wait for shutdown signal
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received. Exiting.")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
