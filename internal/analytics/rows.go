// internal/analytics/rows.go
package analytics

import (
	"math"
	"time"

	"github-repo-analytics/internal/model"
)

// RepositoryRow is one row of the repositories table.
type RepositoryRow struct {
	Owner                    string    `ch:"owner"`
	Name                     string    `ch:"name"`
	NameWithOwner            string    `ch:"name_with_owner"`
	Description              string    `ch:"description"`
	Stars                    uint32    `ch:"stars"`
	Forks                    uint32    `ch:"forks"`
	Watchers                 uint32    `ch:"watchers"`
	IsFork                   uint8     `ch:"is_fork"`
	IsArchived               uint8     `ch:"is_archived"`
	LanguageCount            uint16    `ch:"language_count"`
	TopicCount               uint16    `ch:"topic_count"`
	DiskUsageKB              uint64    `ch:"disk_usage_kb"`
	PullRequests             uint32    `ch:"pull_requests"`
	Issues                   uint32    `ch:"issues"`
	PrimaryLanguage          string    `ch:"primary_language"`
	CreatedAt                time.Time `ch:"created_at"`
	PushedAt                 time.Time `ch:"pushed_at"`
	CreatedYear              uint16    `ch:"created_year"`
	CreatedDate              time.Time `ch:"created_date"`
	DefaultBranchCommitCount uint32    `ch:"default_branch_commit_count"`
	License                  string    `ch:"license"`
	AssignableUserCount      uint16    `ch:"assignable_user_count"`
	CodeOfConduct            string    `ch:"code_of_conduct"`
	ForkingAllowed           uint8     `ch:"forking_allowed"`
	HasParent                uint8     `ch:"has_parent"`
}

// LanguageRow is one row of the repository_languages table. CreatedYear,
// RepoStars and RepoForks are copies of the parent repository's values.
type LanguageRow struct {
	RepoNameWithOwner string `ch:"repo_name_with_owner"`
	Language          string `ch:"language"`
	Size              uint64 `ch:"size"`
	CreatedYear       uint16 `ch:"created_year"`
	RepoStars         uint32 `ch:"repo_stars"`
	RepoForks         uint32 `ch:"repo_forks"`
}

// TopicRow is one row of the repository_topics table.
type TopicRow struct {
	RepoNameWithOwner string `ch:"repo_name_with_owner"`
	Topic             string `ch:"topic"`
	TopicStars        uint32 `ch:"topic_stars"`
	CreatedYear       uint16 `ch:"created_year"`
	RepoStars         uint32 `ch:"repo_stars"`
}

// buildRows expands a strictly normalized record into its rows for the three
// tables. The record must carry CreatedAt, PushedAt and CreatedYear.
func buildRows(rec model.Record) (RepositoryRow, []LanguageRow, []TopicRow) {
	createdAt := rec.CreatedAt.UTC()
	year := uint16(*rec.CreatedYear)
	stars := clampUint32(rec.Stars)

	repo := RepositoryRow{
		Owner:                    rec.OwnerLogin,
		Name:                     rec.Name,
		NameWithOwner:            rec.NameWithOwner,
		Description:              deref(rec.Description),
		Stars:                    stars,
		Forks:                    clampUint32(rec.Forks),
		Watchers:                 clampUint32(rec.Watchers),
		IsFork:                   flag(rec.IsFork),
		IsArchived:               flag(rec.IsArchived),
		TopicCount:               clampUint16(rec.TopicCount),
		DiskUsageKB:              clampUint64(rec.DiskUsageKB),
		PullRequests:             clampUint32(rec.PullRequests),
		Issues:                   clampUint32(rec.Issues),
		PrimaryLanguage:          rec.PrimaryLanguage,
		CreatedAt:                createdAt,
		PushedAt:                 rec.PushedAt.UTC(),
		CreatedYear:              year,
		CreatedDate:              time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC),
		DefaultBranchCommitCount: clampUint32(rec.DefaultBranchCommitCount),
		License:                  deref(rec.License),
		AssignableUserCount:      clampUint16(rec.AssignableUserCount),
		CodeOfConduct:            deref(rec.CodeOfConduct),
		ForkingAllowed:           flag(rec.ForkingAllowed),
		HasParent:                flag(rec.HasParent),
	}
	if rec.LanguageCount != nil {
		repo.LanguageCount = clampUint16(*rec.LanguageCount)
	}

	languages := make([]LanguageRow, 0, len(rec.Languages))
	for _, l := range rec.Languages {
		languages = append(languages, LanguageRow{
			RepoNameWithOwner: rec.NameWithOwner,
			Language:          l.Name,
			Size:              clampUint64(l.Size),
			CreatedYear:       year,
			RepoStars:         stars,
			RepoForks:         repo.Forks,
		})
	}

	topics := make([]TopicRow, 0, len(rec.Topics))
	for _, t := range rec.Topics {
		topics = append(topics, TopicRow{
			RepoNameWithOwner: rec.NameWithOwner,
			Topic:             t.Name,
			TopicStars:        clampUint32(t.Stars),
			CreatedYear:       year,
			RepoStars:         stars,
		})
	}
	return repo, languages, topics
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func clampUint16(n int64) uint16 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(n)
}

func clampUint32(n int64) uint32 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(n)
}

func clampUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
