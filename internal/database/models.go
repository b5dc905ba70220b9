// internal/database/models.go
package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Owner struct {
	ID    int64
	Login string
}

type Language struct {
	ID   int64
	Name string
}

type Topic struct {
	ID    int64
	Name  string
	Stars int32
}

type Repo struct {
	ID                       int64
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
	PrimaryLanguageID        pgtype.Int8
}

type RepoKey struct {
	ID            int64
	NameWithOwner string
}

type RepoLanguage struct {
	RepoID     int64
	LanguageID int64
	Size       int64
}

type RepoTopic struct {
	RepoID  int64
	TopicID int64
}
