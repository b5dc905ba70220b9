// internal/identity/cache.go
package identity

import (
	"context"
	"fmt"

	"github-repo-analytics/internal/database"
)

// Store is the subset of database.Querier the cache needs.
type Store interface {
	ListOwners(ctx context.Context) ([]database.Owner, error)
	ListLanguages(ctx context.Context) ([]database.Language, error)
	ListTopics(ctx context.Context) ([]database.Topic, error)
	ListRepositoryKeys(ctx context.Context) ([]database.RepoKey, error)
	CreateOwner(ctx context.Context, login string) (database.Owner, error)
	GetOwnerByLogin(ctx context.Context, login string) (database.Owner, error)
	CreateLanguage(ctx context.Context, name string) (database.Language, error)
	GetLanguageByName(ctx context.Context, name string) (database.Language, error)
	CreateTopic(ctx context.Context, name string) (database.Topic, error)
	GetTopicByName(ctx context.Context, name string) (database.Topic, error)
}

// Cache maps natural keys to persisted entities for the duration of one
// ingestion run. It is not safe for concurrent use and is never shared
// between runs; natural keys are immutable so no invalidation is needed.
type Cache struct {
	store     Store
	owners    map[string]database.Owner
	languages map[string]database.Language
	topics    map[string]database.Topic
	repos     map[string]int64
}

func New(store Store) *Cache {
	return &Cache{
		store:     store,
		owners:    make(map[string]database.Owner),
		languages: make(map[string]database.Language),
		topics:    make(map[string]database.Topic),
		repos:     make(map[string]int64),
	}
}

// Preload reads every existing owner, language, topic and repository key.
func (c *Cache) Preload(ctx context.Context) error {
	owners, err := c.store.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("preload owners: %w", err)
	}
	for _, o := range owners {
		c.owners[o.Login] = o
	}

	languages, err := c.store.ListLanguages(ctx)
	if err != nil {
		return fmt.Errorf("preload languages: %w", err)
	}
	for _, l := range languages {
		c.languages[l.Name] = l
	}

	topics, err := c.store.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("preload topics: %w", err)
	}
	for _, t := range topics {
		c.topics[t.Name] = t
	}

	repos, err := c.store.ListRepositoryKeys(ctx)
	if err != nil {
		return fmt.Errorf("preload repositories: %w", err)
	}
	for _, r := range repos {
		c.repos[r.NameWithOwner] = r.ID
	}
	return nil
}

// Sizes reports the number of cached owners, languages, topics and repos.
func (c *Cache) Sizes() (owners, languages, topics, repos int) {
	return len(c.owners), len(c.languages), len(c.topics), len(c.repos)
}

// Owner returns the owner with the given login, creating it when absent.
func (c *Cache) Owner(ctx context.Context, login string) (database.Owner, error) {
	return getOrCreate(ctx, c.owners, login, c.store.CreateOwner, c.store.GetOwnerByLogin)
}

// Language returns the language with the given name, creating it when absent.
func (c *Cache) Language(ctx context.Context, name string) (database.Language, error) {
	return getOrCreate(ctx, c.languages, name, c.store.CreateLanguage, c.store.GetLanguageByName)
}

// Topic returns the topic with the given name, creating it when absent.
func (c *Cache) Topic(ctx context.Context, name string) (database.Topic, error) {
	return getOrCreate(ctx, c.topics, name, c.store.CreateTopic, c.store.GetTopicByName)
}

// RepoID returns the id of a known repository.
func (c *Cache) RepoID(nameWithOwner string) (int64, bool) {
	id, ok := c.repos[nameWithOwner]
	return id, ok
}

// PutRepo records a repository created or re-read during the run.
func (c *Cache) PutRepo(nameWithOwner string, id int64) {
	c.repos[nameWithOwner] = id
}

// getOrCreate consults the map, then tries to insert. A unique violation
// means another writer created the key first, so the row is re-read instead.
func getOrCreate[T any](
	ctx context.Context,
	cache map[string]T,
	key string,
	create func(context.Context, string) (T, error),
	fetch func(context.Context, string) (T, error),
) (T, error) {
	if v, ok := cache[key]; ok {
		return v, nil
	}

	v, err := create(ctx, key)
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return v, fmt.Errorf("create %q: %w", key, err)
		}
		v, err = fetch(ctx, key)
		if err != nil {
			return v, fmt.Errorf("re-read %q after conflict: %w", key, err)
		}
	}

	cache[key] = v
	return v, nil
}
