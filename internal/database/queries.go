// internal/database/queries.go
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOwner = `-- name: CreateOwner :one
INSERT INTO owners (login) VALUES ($1)
RETURNING id, login
`

func (q *Queries) CreateOwner(ctx context.Context, login string) (Owner, error) {
	row := q.db.QueryRow(ctx, createOwner, login)
	var i Owner
	err := row.Scan(&i.ID, &i.Login)
	return i, err
}

const getOwnerByLogin = `-- name: GetOwnerByLogin :one
SELECT id, login FROM owners WHERE login = $1
`

func (q *Queries) GetOwnerByLogin(ctx context.Context, login string) (Owner, error) {
	row := q.db.QueryRow(ctx, getOwnerByLogin, login)
	var i Owner
	err := row.Scan(&i.ID, &i.Login)
	return i, err
}

const listOwners = `-- name: ListOwners :many
SELECT id, login FROM owners
`

func (q *Queries) ListOwners(ctx context.Context) ([]Owner, error) {
	rows, err := q.db.Query(ctx, listOwners)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Owner, error) {
		var i Owner
		err := row.Scan(&i.ID, &i.Login)
		return i, err
	})
}

const createLanguage = `-- name: CreateLanguage :one
INSERT INTO languages (name) VALUES ($1)
RETURNING id, name
`

func (q *Queries) CreateLanguage(ctx context.Context, name string) (Language, error) {
	row := q.db.QueryRow(ctx, createLanguage, name)
	var i Language
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const getLanguageByName = `-- name: GetLanguageByName :one
SELECT id, name FROM languages WHERE name = $1
`

func (q *Queries) GetLanguageByName(ctx context.Context, name string) (Language, error) {
	row := q.db.QueryRow(ctx, getLanguageByName, name)
	var i Language
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listLanguages = `-- name: ListLanguages :many
SELECT id, name FROM languages
`

func (q *Queries) ListLanguages(ctx context.Context) ([]Language, error) {
	rows, err := q.db.Query(ctx, listLanguages)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Language, error) {
		var i Language
		err := row.Scan(&i.ID, &i.Name)
		return i, err
	})
}

const createTopic = `-- name: CreateTopic :one
INSERT INTO topics (name) VALUES ($1)
RETURNING id, name, stars
`

func (q *Queries) CreateTopic(ctx context.Context, name string) (Topic, error) {
	row := q.db.QueryRow(ctx, createTopic, name)
	var i Topic
	err := row.Scan(&i.ID, &i.Name, &i.Stars)
	return i, err
}

const getTopicByName = `-- name: GetTopicByName :one
SELECT id, name, stars FROM topics WHERE name = $1
`

func (q *Queries) GetTopicByName(ctx context.Context, name string) (Topic, error) {
	row := q.db.QueryRow(ctx, getTopicByName, name)
	var i Topic
	err := row.Scan(&i.ID, &i.Name, &i.Stars)
	return i, err
}

const listTopics = `-- name: ListTopics :many
SELECT id, name, stars FROM topics
`

func (q *Queries) ListTopics(ctx context.Context) ([]Topic, error) {
	rows, err := q.db.Query(ctx, listTopics)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Topic, error) {
		var i Topic
		err := row.Scan(&i.ID, &i.Name, &i.Stars)
		return i, err
	})
}

const repoColumns = `id, owner_id, name, name_with_owner, description, stars, forks, watchers, issues,
    pull_requests, disk_usage_kb, assignable_user_count, default_branch_commit_count, is_fork,
    is_archived, forking_allowed, code_of_conduct, license, created_at, pushed_at, created_year,
    language_count, primary_language_id`

func scanRepo(row pgx.Row) (Repo, error) {
	var i Repo
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.NameWithOwner,
		&i.Description,
		&i.Stars,
		&i.Forks,
		&i.Watchers,
		&i.Issues,
		&i.PullRequests,
		&i.DiskUsageKb,
		&i.AssignableUserCount,
		&i.DefaultBranchCommitCount,
		&i.IsFork,
		&i.IsArchived,
		&i.ForkingAllowed,
		&i.CodeOfConduct,
		&i.License,
		&i.CreatedAt,
		&i.PushedAt,
		&i.CreatedYear,
		&i.LanguageCount,
		&i.PrimaryLanguageID,
	)
	return i, err
}

const createRepository = `-- name: CreateRepository :one
INSERT INTO repos (
    owner_id, name, name_with_owner, description, stars, forks, watchers, issues,
    pull_requests, disk_usage_kb, assignable_user_count, default_branch_commit_count, is_fork,
    is_archived, forking_allowed, code_of_conduct, license, created_at, pushed_at, created_year,
    language_count
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
)
RETURNING ` + repoColumns

type CreateRepositoryParams struct {
	OwnerID                  int64
	Name                     string
	NameWithOwner            string
	Description              pgtype.Text
	Stars                    int32
	Forks                    int32
	Watchers                 int32
	Issues                   int32
	PullRequests             int32
	DiskUsageKb              int64
	AssignableUserCount      int32
	DefaultBranchCommitCount int32
	IsFork                   bool
	IsArchived               bool
	ForkingAllowed           bool
	CodeOfConduct            pgtype.Text
	License                  pgtype.Text
	CreatedAt                pgtype.Timestamptz
	PushedAt                 pgtype.Timestamptz
	CreatedYear              pgtype.Int4
	LanguageCount            pgtype.Int4
}

func (q *Queries) CreateRepository(ctx context.Context, arg CreateRepositoryParams) (Repo, error) {
	row := q.db.QueryRow(ctx, createRepository,
		arg.OwnerID,
		arg.Name,
		arg.NameWithOwner,
		arg.Description,
		arg.Stars,
		arg.Forks,
		arg.Watchers,
		arg.Issues,
		arg.PullRequests,
		arg.DiskUsageKb,
		arg.AssignableUserCount,
		arg.DefaultBranchCommitCount,
		arg.IsFork,
		arg.IsArchived,
		arg.ForkingAllowed,
		arg.CodeOfConduct,
		arg.License,
		arg.CreatedAt,
		arg.PushedAt,
		arg.CreatedYear,
		arg.LanguageCount,
	)
	return scanRepo(row)
}

const getRepositoryByID = `-- name: GetRepositoryByID :one
SELECT ` + repoColumns + ` FROM repos WHERE id = $1
`

func (q *Queries) GetRepositoryByID(ctx context.Context, id int64) (Repo, error) {
	return scanRepo(q.db.QueryRow(ctx, getRepositoryByID, id))
}

const getRepositoryByNameWithOwner = `-- name: GetRepositoryByNameWithOwner :one
SELECT ` + repoColumns + ` FROM repos WHERE name_with_owner = $1
`

func (q *Queries) GetRepositoryByNameWithOwner(ctx context.Context, nameWithOwner string) (Repo, error) {
	return scanRepo(q.db.QueryRow(ctx, getRepositoryByNameWithOwner, nameWithOwner))
}

const listRepositoryKeys = `-- name: ListRepositoryKeys :many
SELECT id, name_with_owner FROM repos
`

func (q *Queries) ListRepositoryKeys(ctx context.Context) ([]RepoKey, error) {
	rows, err := q.db.Query(ctx, listRepositoryKeys)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RepoKey, error) {
		var i RepoKey
		err := row.Scan(&i.ID, &i.NameWithOwner)
		return i, err
	})
}

// CreateRepoLanguages copies all rows in one COPY statement. COPY is atomic:
// a single duplicate pair rejects the whole set.
func (q *Queries) CreateRepoLanguages(ctx context.Context, arg []RepoLanguage) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"repo_languages"},
		[]string{"repo_id", "language_id", "size"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return []any{arg[i].RepoID, arg[i].LanguageID, arg[i].Size}, nil
		}),
	)
}

const createRepoLanguage = `-- name: CreateRepoLanguage :exec
INSERT INTO repo_languages (repo_id, language_id, size) VALUES ($1, $2, $3)
`

func (q *Queries) CreateRepoLanguage(ctx context.Context, arg RepoLanguage) error {
	_, err := q.db.Exec(ctx, createRepoLanguage, arg.RepoID, arg.LanguageID, arg.Size)
	return err
}

func (q *Queries) CreateRepoTopics(ctx context.Context, arg []RepoTopic) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"repo_topics"},
		[]string{"repo_id", "topic_id"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return []any{arg[i].RepoID, arg[i].TopicID}, nil
		}),
	)
}

const createRepoTopic = `-- name: CreateRepoTopic :exec
INSERT INTO repo_topics (repo_id, topic_id) VALUES ($1, $2)
`

func (q *Queries) CreateRepoTopic(ctx context.Context, arg RepoTopic) error {
	_, err := q.db.Exec(ctx, createRepoTopic, arg.RepoID, arg.TopicID)
	return err
}

type UpdateRepositoryParams struct {
	ID                int64
	PrimaryLanguageID pgtype.Int8
	Stars             int32
	PushedAt          pgtype.Timestamptz
}

const updateRepositories = `-- name: UpdateRepositories :execrows
UPDATE repos AS r
SET primary_language_id = u.primary_language_id,
    stars = u.stars,
    pushed_at = u.pushed_at
FROM unnest($1::bigint[], $2::bigint[], $3::int[], $4::timestamptz[])
    AS u(id, primary_language_id, stars, pushed_at)
WHERE r.id = u.id
`

func (q *Queries) UpdateRepositories(ctx context.Context, arg []UpdateRepositoryParams) (int64, error) {
	ids := make([]int64, len(arg))
	langs := make([]pgtype.Int8, len(arg))
	stars := make([]int32, len(arg))
	pushed := make([]pgtype.Timestamptz, len(arg))
	for i, a := range arg {
		ids[i], langs[i], stars[i], pushed[i] = a.ID, a.PrimaryLanguageID, a.Stars, a.PushedAt
	}
	result, err := q.db.Exec(ctx, updateRepositories, ids, langs, stars, pushed)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateRepository = `-- name: UpdateRepository :exec
UPDATE repos SET primary_language_id = $2, stars = $3, pushed_at = $4 WHERE id = $1
`

func (q *Queries) UpdateRepository(ctx context.Context, arg UpdateRepositoryParams) error {
	_, err := q.db.Exec(ctx, updateRepository, arg.ID, arg.PrimaryLanguageID, arg.Stars, arg.PushedAt)
	return err
}

const topLanguagesByYear = `-- name: TopLanguagesByYear :many
SELECT l.name AS language, COALESCE(SUM(rl.size), 0)::bigint AS total_size
FROM repo_languages rl
JOIN languages l ON l.id = rl.language_id
JOIN repos r ON r.id = rl.repo_id
WHERE r.created_year = $1
GROUP BY l.name
ORDER BY total_size DESC, l.name
LIMIT $2
`

type TopLanguagesByYearParams struct {
	CreatedYear int32
	Limit       int32
}

type TopLanguagesByYearRow struct {
	Language  string
	TotalSize int64
}

func (q *Queries) TopLanguagesByYear(ctx context.Context, arg TopLanguagesByYearParams) ([]TopLanguagesByYearRow, error) {
	rows, err := q.db.Query(ctx, topLanguagesByYear, arg.CreatedYear, arg.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopLanguagesByYearRow, error) {
		var i TopLanguagesByYearRow
		err := row.Scan(&i.Language, &i.TotalSize)
		return i, err
	})
}
