//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-repo-analytics/internal/api"
	"github-repo-analytics/internal/cache"
	"github-repo-analytics/internal/database"
	"github-repo-analytics/internal/importer"
	"github-repo-analytics/internal/logging"
	"github-repo-analytics/internal/metrics"
	"github-repo-analytics/internal/source"
	"github-repo-analytics/internal/stats"
)

const exportFixture = `[
  {"owner": "octo", "name": "snake", "nameWithOwner": "octo/snake", "stars": 10,
   "createdAt": "2020-02-01T00:00:00Z", "pushedAt": "2024-01-01T00:00:00Z",
   "primaryLanguage": "Python", "languages": [{"name": "Python", "size": 300}], "topics": [{"name": "ml"}]},
  {"owner": "octo", "name": "gopher", "nameWithOwner": "octo/gopher", "stars": 5,
   "createdAt": "2020-05-01T00:00:00Z", "pushedAt": "2024-01-01T00:00:00Z",
   "primaryLanguage": "Go", "languages": [{"name": "Go", "size": 50}]},
  {"owner": "alice", "name": "new", "nameWithOwner": "alice/new", "stars": 1,
   "createdAt": "2021-06-15T10:00:00Z", "pushedAt": "2024-01-01T00:00:00Z",
   "languages": [{"name": "Rust", "size": 999}]}
]`

func setupTestDatabase(ctx context.Context, t *testing.T) *pgxpool.Pool {
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate("file://../../migrations", connStr))

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbpool.Close)
	return dbpool
}

func TestService_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool := setupTestDatabase(ctx, t)
	logger, _ := logging.New(os.Stdout, "debug")
	m := metrics.New()

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(exportFixture), 0o600))
	raws, err := source.ReadFile(path)
	require.NoError(t, err)

	summary, err := importer.New(database.New(dbpool), logger, m, importer.DefaultBatchConfig()).Run(ctx, raws)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CreatedRepos)

	svc := stats.NewService(database.New(dbpool), nil, cache.NewMemory(), m, logger, stats.Options{})
	server := httptest.NewServer(api.NewRouter(svc, logger, api.Options{
		Checks:  map[string]api.Pinger{"postgres": dbpool},
		Metrics: m.Handler(),
	}))
	defer server.Close()

	get := func(t *testing.T, path string) (*http.Response, string) {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	t.Run("health", func(t *testing.T) {
		resp, body := get(t, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, body)
	})

	t.Run("top languages", func(t *testing.T) {
		resp, body := get(t, "/v1/top5-languages?year=2020&limit=2")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[{"language":"Python","total_size":300,"year":2020},{"language":"Go","total_size":50,"year":2020}]`, body)
	})

	t.Run("cached result survives new data", func(t *testing.T) {
		_, err := dbpool.Exec(ctx, "UPDATE repo_languages SET size = 1")
		require.NoError(t, err)

		_, body := get(t, "/v1/top5-languages?year=2020&limit=2")
		assert.JSONEq(t, `[{"language":"Python","total_size":300,"year":2020},{"language":"Go","total_size":50,"year":2020}]`, body)
	})

	t.Run("bad year", func(t *testing.T) {
		resp, _ := get(t, "/v1/top5-languages?year=abc")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
