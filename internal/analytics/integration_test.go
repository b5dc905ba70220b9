//go:build integration

// internal/analytics/integration_test.go
package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"github-repo-analytics/internal/metrics"
)

func setupTestStore(ctx context.Context, t *testing.T) *Store {
	container, err := tcclickhouse.Run(ctx, "clickhouse/clickhouse-server:24.3-alpine",
		tcclickhouse.WithUsername("user"),
		tcclickhouse.WithPassword("password"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.ConnectionHost(ctx)
	require.NoError(t, err)

	store, err := Open(ctx, Config{Addr: host, Database: "github_analytics_test", Username: "user", Password: "password"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupTestStore(ctx, t)
	loader := NewLoader(store, testLogger(), metrics.New())

	raws := []map[string]any{validRaw("octo/cat"), validRaw("octo/dog")}
	raws[1]["stars"] = "not a number"

	for i := 0; i < 2; i++ {
		result, err := loader.InsertBatch(ctx, raws)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Repositories)
		assert.Equal(t, 1, result.Failed)
	}

	t.Run("append doubles row counts", func(t *testing.T) {
		n, err := store.RepositoryCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)
	})

	t.Run("schema setup is idempotent", func(t *testing.T) {
		require.NoError(t, store.EnsureSchema(ctx))
	})

	t.Run("top languages by size", func(t *testing.T) {
		top, err := store.TopLanguagesByYearAndSize(ctx, 2021, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "Go", top[0].Language)
		assert.Equal(t, int64(1800), top[0].TotalSize)
		assert.Equal(t, 2021, top[0].Year)
	})

	t.Run("languages by year counts distinct repositories", func(t *testing.T) {
		stats, err := store.LanguagesByYear(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		for _, s := range stats {
			assert.Equal(t, 2021, s.Year)
			assert.Equal(t, uint64(1), s.RepositoryCount)
			assert.Equal(t, uint64(84), s.TotalStars)
		}
	})

	t.Run("language statistics", func(t *testing.T) {
		stats, err := store.LanguageStatistics(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, 42.0, stats[0].AverageStars)
		assert.Equal(t, uint32(42), stats[0].MaxStars)
	})

	t.Run("truncate empties every table", func(t *testing.T) {
		require.NoError(t, store.Truncate(ctx))
		n, err := store.RepositoryCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
