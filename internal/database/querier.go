// internal/database/querier.go
package database

import (
	"context"
)

type Querier interface {
	CreateLanguage(ctx context.Context, name string) (Language, error)
	CreateOwner(ctx context.Context, login string) (Owner, error)
	CreateRepoLanguage(ctx context.Context, arg RepoLanguage) error
	CreateRepoLanguages(ctx context.Context, arg []RepoLanguage) (int64, error)
	CreateRepoTopic(ctx context.Context, arg RepoTopic) error
	CreateRepoTopics(ctx context.Context, arg []RepoTopic) (int64, error)
	CreateRepository(ctx context.Context, arg CreateRepositoryParams) (Repo, error)
	CreateTopic(ctx context.Context, name string) (Topic, error)
	GetLanguageByName(ctx context.Context, name string) (Language, error)
	GetOwnerByLogin(ctx context.Context, login string) (Owner, error)
	GetRepositoryByID(ctx context.Context, id int64) (Repo, error)
	GetRepositoryByNameWithOwner(ctx context.Context, nameWithOwner string) (Repo, error)
	GetTopicByName(ctx context.Context, name string) (Topic, error)
	ListLanguages(ctx context.Context) ([]Language, error)
	ListOwners(ctx context.Context) ([]Owner, error)
	ListRepositoryKeys(ctx context.Context) ([]RepoKey, error)
	ListTopics(ctx context.Context) ([]Topic, error)
	TopLanguagesByYear(ctx context.Context, arg TopLanguagesByYearParams) ([]TopLanguagesByYearRow, error)
	UpdateRepositories(ctx context.Context, arg []UpdateRepositoryParams) (int64, error)
	UpdateRepository(ctx context.Context, arg UpdateRepositoryParams) error
}

var _ Querier = (*Queries)(nil)
