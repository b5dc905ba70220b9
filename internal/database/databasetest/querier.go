// internal/database/databasetest/querier.go
package databasetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github-repo-analytics/internal/database"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

var _ database.Querier = (*MockQuerier)(nil)

func (m *MockQuerier) CreateLanguage(ctx context.Context, name string) (database.Language, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Language), args.Error(1)
}
func (m *MockQuerier) CreateOwner(ctx context.Context, login string) (database.Owner, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(database.Owner), args.Error(1)
}
func (m *MockQuerier) CreateRepoLanguage(ctx context.Context, arg database.RepoLanguage) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) CreateRepoLanguages(ctx context.Context, arg []database.RepoLanguage) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CreateRepoTopic(ctx context.Context, arg database.RepoTopic) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) CreateRepoTopics(ctx context.Context, arg []database.RepoTopic) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CreateRepository(ctx context.Context, arg database.CreateRepositoryParams) (database.Repo, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repo), args.Error(1)
}
func (m *MockQuerier) CreateTopic(ctx context.Context, name string) (database.Topic, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Topic), args.Error(1)
}
func (m *MockQuerier) GetLanguageByName(ctx context.Context, name string) (database.Language, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Language), args.Error(1)
}
func (m *MockQuerier) GetOwnerByLogin(ctx context.Context, login string) (database.Owner, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(database.Owner), args.Error(1)
}
func (m *MockQuerier) GetRepositoryByID(ctx context.Context, id int64) (database.Repo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Repo), args.Error(1)
}
func (m *MockQuerier) GetRepositoryByNameWithOwner(ctx context.Context, nameWithOwner string) (database.Repo, error) {
	args := m.Called(ctx, nameWithOwner)
	return args.Get(0).(database.Repo), args.Error(1)
}
func (m *MockQuerier) GetTopicByName(ctx context.Context, name string) (database.Topic, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Topic), args.Error(1)
}
func (m *MockQuerier) ListLanguages(ctx context.Context) ([]database.Language, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.Language), args.Error(1)
}
func (m *MockQuerier) ListOwners(ctx context.Context) ([]database.Owner, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.Owner), args.Error(1)
}
func (m *MockQuerier) ListRepositoryKeys(ctx context.Context) ([]database.RepoKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.RepoKey), args.Error(1)
}
func (m *MockQuerier) ListTopics(ctx context.Context) ([]database.Topic, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.Topic), args.Error(1)
}
func (m *MockQuerier) TopLanguagesByYear(ctx context.Context, arg database.TopLanguagesByYearParams) ([]database.TopLanguagesByYearRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.TopLanguagesByYearRow), args.Error(1)
}
func (m *MockQuerier) UpdateRepositories(ctx context.Context, arg []database.UpdateRepositoryParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) UpdateRepository(ctx context.Context, arg database.UpdateRepositoryParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

// ExpectEmptyPreload stubs the four preload listings with empty results.
func (m *MockQuerier) ExpectEmptyPreload() {
	m.On("ListOwners", mock.Anything).Return([]database.Owner{}, nil)
	m.On("ListLanguages", mock.Anything).Return([]database.Language{}, nil)
	m.On("ListTopics", mock.Anything).Return([]database.Topic{}, nil)
	m.On("ListRepositoryKeys", mock.Anything).Return([]database.RepoKey{}, nil)
}
