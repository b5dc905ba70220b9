// internal/importer/importer_test.go
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-repo-analytics/internal/database"
	"github-repo-analytics/internal/database/databasetest"
	custom_errors "github-repo-analytics/internal/errors"
	"github-repo-analytics/internal/metrics"
)

var errUnique = &pgconn.PgError{Code: pgerrcode.UniqueViolation}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func rawRepo(nwo, primary string, languages map[string]int, topics ...string) map[string]any {
	owner, name, _ := strings.Cut(nwo, "/")
	langs := make([]any, 0, len(languages))
	for n, size := range languages {
		langs = append(langs, map[string]any{"name": n, "size": json.Number(strconv.Itoa(size))})
	}
	tops := make([]any, 0, len(topics))
	for _, t := range topics {
		tops = append(tops, map[string]any{"name": t})
	}
	return map[string]any{
		"owner":           owner,
		"name":            name,
		"nameWithOwner":   nwo,
		"stars":           json.Number("10"),
		"createdAt":       "2021-06-15T10:00:00Z",
		"pushedAt":        "2024-01-01T00:00:00Z",
		"primaryLanguage": primary,
		"languages":       langs,
		"topics":          tops,
	}
}

func TestImporter_Run_NewRepository(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()

	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil).Once()
	mockQ.On("CreateRepository", mock.Anything, mock.MatchedBy(func(p database.CreateRepositoryParams) bool {
		return p.NameWithOwner == "octo/cat" && p.OwnerID == 1 &&
			p.CreatedYear == pgtype.Int4{Int32: 2021, Valid: true} && p.Stars == 10 && p.ForkingAllowed
	})).Return(database.Repo{ID: 10, NameWithOwner: "octo/cat"}, nil).Once()
	mockQ.On("CreateLanguage", mock.Anything, "Go").Return(database.Language{ID: 100, Name: "Go"}, nil).Once()
	mockQ.On("CreateTopic", mock.Anything, "cli").Return(database.Topic{ID: 200, Name: "cli"}, nil).Once()

	mockQ.On("CreateRepoLanguages", mock.Anything, []database.RepoLanguage{{RepoID: 10, LanguageID: 100, Size: 500}}).Return(int64(1), nil).Once()
	mockQ.On("CreateRepoTopics", mock.Anything, []database.RepoTopic{{RepoID: 10, TopicID: 200}}).Return(int64(1), nil).Once()
	mockQ.On("UpdateRepositories", mock.Anything, mock.MatchedBy(func(u []database.UpdateRepositoryParams) bool {
		return len(u) == 1 && u[0].ID == 10 && u[0].PrimaryLanguageID.Int64 == 100 && u[0].Stars == 10 && u[0].PushedAt.Valid
	})).Return(int64(1), nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{rawRepo("octo/cat", "Go", map[string]int{"Go": 500}, "cli")})

	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, CreatedRepos: 1}, summary)
	mockQ.AssertExpectations(t)
}

func TestImporter_Run_ExistingRepositoryIsNotRecreated(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.On("ListOwners", mock.Anything).Return([]database.Owner{{ID: 1, Login: "octo"}}, nil)
	mockQ.On("ListLanguages", mock.Anything).Return([]database.Language{{ID: 100, Name: "Go"}}, nil)
	mockQ.On("ListTopics", mock.Anything).Return([]database.Topic{}, nil)
	mockQ.On("ListRepositoryKeys", mock.Anything).Return([]database.RepoKey{{ID: 10, NameWithOwner: "octo/cat"}}, nil)

	existing := database.Repo{ID: 10, NameWithOwner: "octo/cat", Stars: 3, PrimaryLanguageID: pgtype.Int8{Int64: 100, Valid: true}}
	mockQ.On("GetRepositoryByID", mock.Anything, int64(10)).Return(existing, nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{rawRepo("octo/cat", "Go", nil)})

	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1}, summary)
	mockQ.AssertExpectations(t)
	mockQ.AssertNotCalled(t, "CreateRepository", mock.Anything, mock.Anything)
	mockQ.AssertNotCalled(t, "UpdateRepositories", mock.Anything, mock.Anything)
}

func TestImporter_Run_PrimaryLanguageChangeIsStaged(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.On("ListOwners", mock.Anything).Return([]database.Owner{{ID: 1, Login: "octo"}}, nil)
	mockQ.On("ListLanguages", mock.Anything).Return([]database.Language{{ID: 100, Name: "Go"}, {ID: 101, Name: "Rust"}}, nil)
	mockQ.On("ListTopics", mock.Anything).Return([]database.Topic{}, nil)
	mockQ.On("ListRepositoryKeys", mock.Anything).Return([]database.RepoKey{{ID: 10, NameWithOwner: "octo/cat"}}, nil)

	existing := database.Repo{ID: 10, NameWithOwner: "octo/cat", PrimaryLanguageID: pgtype.Int8{Int64: 100, Valid: true}}
	mockQ.On("GetRepositoryByID", mock.Anything, int64(10)).Return(existing, nil)
	mockQ.On("UpdateRepositories", mock.Anything, mock.MatchedBy(func(u []database.UpdateRepositoryParams) bool {
		return len(u) == 1 && u[0].PrimaryLanguageID.Int64 == 101
	})).Return(int64(1), nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	_, err := im.Run(ctx, []map[string]any{
		rawRepo("octo/cat", "Rust", nil),
		rawRepo("octo/cat", "Rust", nil),
	})

	require.NoError(t, err)
	mockQ.AssertExpectations(t)
}

func TestImporter_Run_CreateConflictReReadsRepository(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil)
	mockQ.On("CreateRepository", mock.Anything, mock.Anything).Return(database.Repo{}, errUnique).Once()
	mockQ.On("GetRepositoryByNameWithOwner", mock.Anything, "octo/cat").Return(database.Repo{ID: 42, NameWithOwner: "octo/cat"}, nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{rawRepo("octo/cat", "", nil)})

	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1}, summary)
	mockQ.AssertExpectations(t)
}

func TestImporter_Run_SkipsRejectedRecords(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil)
	mockQ.On("CreateRepository", mock.Anything, mock.Anything).
		Return(database.Repo{}, &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException}).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{
		{"description": "no name at all"},
		rawRepo("octo/cat", "", nil),
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Skipped: 2}, summary)
}

func TestImporter_Run_BackendErrorAborts(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{}, errors.New("connection reset")).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	_, err := im.Run(ctx, []map[string]any{rawRepo("octo/cat", "", nil)})

	assert.ErrorContains(t, err, "connection reset")
}

func TestImporter_Run_RejectedTopicSkipsOnlyThatEdge(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil)
	for id, name := range map[int64]string{1: "a", 2: "b", 3: "c"} {
		mockQ.On("CreateRepository", mock.Anything, mock.MatchedBy(func(p database.CreateRepositoryParams) bool { return p.Name == name })).
			Return(database.Repo{ID: id, NameWithOwner: "octo/" + name}, nil).Once()
	}
	mockQ.On("CreateLanguage", mock.Anything, "Go").Return(database.Language{ID: 100, Name: "Go"}, nil).Once()
	mockQ.On("CreateTopic", mock.Anything, "toolong").
		Return(database.Topic{}, &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException}).Once()
	mockQ.On("CreateTopic", mock.Anything, "cli").Return(database.Topic{ID: 200, Name: "cli"}, nil).Once()

	mockQ.On("CreateRepoLanguages", mock.Anything, []database.RepoLanguage{{RepoID: 1, LanguageID: 100, Size: 5}}).Return(int64(1), nil).Once()
	mockQ.On("CreateRepoTopics", mock.Anything, []database.RepoTopic{{RepoID: 2, TopicID: 200}}).Return(int64(1), nil).Once()
	mockQ.On("UpdateRepositories", mock.Anything, mock.MatchedBy(func(u []database.UpdateRepositoryParams) bool {
		return len(u) == 1 && u[0].ID == 1 && u[0].PrimaryLanguageID.Int64 == 100
	})).Return(int64(1), nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{
		rawRepo("octo/a", "Go", map[string]int{"Go": 5}),
		rawRepo("octo/b", "", nil, "toolong", "cli"),
		rawRepo("octo/c", "", nil),
	})

	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 3, CreatedRepos: 3}, summary)
	mockQ.AssertExpectations(t)
}

func TestImporter_Run_BackendErrorFlushesStagedRows(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil).Once()
	mockQ.On("CreateOwner", mock.Anything, "alice").Return(database.Owner{}, errors.New("connection reset")).Once()
	mockQ.On("CreateRepository", mock.Anything, mock.Anything).Return(database.Repo{ID: 1, NameWithOwner: "octo/a"}, nil).Once()
	mockQ.On("CreateLanguage", mock.Anything, "Go").Return(database.Language{ID: 100, Name: "Go"}, nil).Once()
	mockQ.On("CreateRepoLanguages", mock.Anything, []database.RepoLanguage{{RepoID: 1, LanguageID: 100, Size: 5}}).Return(int64(1), nil).Once()
	mockQ.On("UpdateRepositories", mock.Anything, mock.Anything).Return(int64(1), nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())
	summary, err := im.Run(ctx, []map[string]any{
		rawRepo("octo/a", "Go", map[string]int{"Go": 5}),
		rawRepo("alice/b", "", nil),
	})

	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 1, summary.CreatedRepos)
	mockQ.AssertExpectations(t)
}

func TestImporter_Run_FlushesAtThreshold(t *testing.T) {
	ctx := context.Background()
	mockQ := new(databasetest.MockQuerier)
	mockQ.ExpectEmptyPreload()
	mockQ.On("CreateOwner", mock.Anything, "octo").Return(database.Owner{ID: 1, Login: "octo"}, nil)
	mockQ.On("CreateRepository", mock.Anything, mock.MatchedBy(func(p database.CreateRepositoryParams) bool { return p.Name == "a" })).
		Return(database.Repo{ID: 1, NameWithOwner: "octo/a"}, nil)
	mockQ.On("CreateRepository", mock.Anything, mock.MatchedBy(func(p database.CreateRepositoryParams) bool { return p.Name == "b" })).
		Return(database.Repo{ID: 2, NameWithOwner: "octo/b"}, nil)
	mockQ.On("CreateLanguage", mock.Anything, "Go").Return(database.Language{ID: 100, Name: "Go"}, nil).Once()
	mockQ.On("CreateRepoLanguages", mock.Anything, []database.RepoLanguage{{RepoID: 1, LanguageID: 100, Size: 5}}).Return(int64(1), nil).Once()
	mockQ.On("CreateRepoLanguages", mock.Anything, []database.RepoLanguage{{RepoID: 2, LanguageID: 100, Size: 7}}).Return(int64(1), nil).Once()

	im := New(mockQ, testLogger(), metrics.New(), BatchConfig{RepoLanguages: 1})
	summary, err := im.Run(ctx, []map[string]any{
		rawRepo("octo/a", "", map[string]int{"Go": 5}),
		rawRepo("octo/b", "", map[string]int{"Go": 7}),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.CreatedRepos)
	mockQ.AssertExpectations(t)
}

func TestWriteRows_Fallback(t *testing.T) {
	ctx := context.Background()
	rows := []database.RepoLanguage{
		{RepoID: 1, LanguageID: 100, Size: 5},
		{RepoID: 1, LanguageID: 100, Size: 9},
	}

	t.Run("duplicates are absorbed", func(t *testing.T) {
		mockQ := new(databasetest.MockQuerier)
		mockQ.On("CreateRepoLanguages", ctx, rows).Return(int64(0), errUnique).Once()
		mockQ.On("CreateRepoLanguage", ctx, rows[0]).Return(nil).Once()
		mockQ.On("CreateRepoLanguage", ctx, rows[1]).Return(errUnique).Once()
		im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())

		err := writeRows(ctx, im, "repo_languages", rows, mockQ.CreateRepoLanguages, mockQ.CreateRepoLanguage)

		assert.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("one bad row does not fail the buffer", func(t *testing.T) {
		mockQ := new(databasetest.MockQuerier)
		mockQ.On("CreateRepoLanguages", ctx, rows).Return(int64(0), errors.New("copy failed")).Once()
		mockQ.On("CreateRepoLanguage", ctx, rows[0]).Return(errors.New("bad row")).Once()
		mockQ.On("CreateRepoLanguage", ctx, rows[1]).Return(nil).Once()
		im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())

		err := writeRows(ctx, im, "repo_languages", rows, mockQ.CreateRepoLanguages, mockQ.CreateRepoLanguage)

		assert.NoError(t, err)
	})

	t.Run("every row failing is reported", func(t *testing.T) {
		mockQ := new(databasetest.MockQuerier)
		mockQ.On("CreateRepoLanguages", ctx, rows).Return(int64(0), errors.New("copy failed")).Once()
		mockQ.On("CreateRepoLanguage", ctx, mock.Anything).Return(errors.New("database is gone")).Twice()
		im := New(mockQ, testLogger(), metrics.New(), DefaultBatchConfig())

		err := writeRows(ctx, im, "repo_languages", rows, mockQ.CreateRepoLanguages, mockQ.CreateRepoLanguage)

		assert.ErrorIs(t, err, custom_errors.ErrFlushFailed)
		assert.ErrorContains(t, err, "database is gone")
	})
}

func TestBuffers(t *testing.T) {
	b := newBuffers()
	assert.True(t, b.empty())

	b.stageUpdate(database.UpdateRepositoryParams{ID: 1, Stars: 1})
	b.stageUpdate(database.UpdateRepositoryParams{ID: 2, Stars: 2})
	b.stageUpdate(database.UpdateRepositoryParams{ID: 1, Stars: 3})

	require.Len(t, b.updates(), 2)
	assert.Equal(t, int32(3), b.updates()[0].Stars)
	assert.True(t, b.full(BatchConfig{RepoLanguages: 10, RepoTopics: 10, RepoUpdates: 2}))
	assert.False(t, b.full(BatchConfig{RepoLanguages: 10, RepoTopics: 10, RepoUpdates: 3}))

	b.reset()
	assert.True(t, b.empty())
	_, ok := b.stagedUpdate(1)
	assert.False(t, ok)
}
