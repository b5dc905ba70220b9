// internal/model/models.go
package model

import "time"

// Record is the canonical shape of one repository entry from a bulk export.
// Nullable strings are nil when the source omits them or sends null.
type Record struct {
	OwnerLogin               string
	Name                     string
	NameWithOwner            string
	Description              *string
	License                  *string
	CodeOfConduct            *string
	Stars                    int64
	Forks                    int64
	Watchers                 int64
	Issues                   int64
	PullRequests             int64
	DiskUsageKB              int64
	AssignableUserCount      int64
	DefaultBranchCommitCount int64
	LanguageCount            *int64
	TopicCount               int64
	IsFork                   bool
	IsArchived               bool
	ForkingAllowed           bool
	HasParent                bool
	CreatedAt                *time.Time
	PushedAt                 *time.Time
	CreatedYear              *int
	PrimaryLanguage          string
	Languages                []LanguageEntry
	Topics                   []TopicEntry
}

// LanguageEntry is one element of a record's language breakdown.
type LanguageEntry struct {
	Name string
	Size int64
}

// TopicEntry is one element of a record's topic list.
type TopicEntry struct {
	Name  string
	Stars int64
}

// LanguageSize is one row of a "top languages by code size" result.
type LanguageSize struct {
	Language  string `json:"language"`
	TotalSize int64  `json:"total_size"`
	Year      int    `json:"year"`
}

// YearLanguageStat is one (year, language) aggregate from the analytical store.
type YearLanguageStat struct {
	Year               int    `json:"-"`
	Language           string `json:"language"`
	RepositoryCount    uint64 `json:"repository_count"`
	TotalStars         uint64 `json:"total_stars"`
	TotalCodeSizeBytes uint64 `json:"total_code_size_bytes"`
}

// LanguageStatistic is one row of the global language popularity report.
type LanguageStatistic struct {
	Language           string  `json:"language"`
	RepositoryCount    uint64  `json:"repository_count"`
	TotalCodeSizeBytes uint64  `json:"total_code_size_bytes"`
	AverageStars       float64 `json:"average_stars"`
	MaxStars           uint32  `json:"max_stars"`
}

// ExportRecord is the on-disk shape of a bulk export entry.
type ExportRecord struct {
	Owner                    string           `json:"owner"`
	Name                     string           `json:"name"`
	NameWithOwner            string           `json:"nameWithOwner"`
	Description              string           `json:"description"`
	Stars                    int              `json:"stars"`
	Forks                    int              `json:"forks"`
	Watchers                 int              `json:"watchers"`
	Issues                   int              `json:"issues"`
	PullRequests             int              `json:"pullRequests"`
	DiskUsageKB              int              `json:"diskUsageKb"`
	AssignableUserCount      int              `json:"assignableUserCount"`
	DefaultBranchCommitCount int              `json:"defaultBranchCommitCount"`
	IsFork                   bool             `json:"isFork"`
	IsArchived               bool             `json:"isArchived"`
	ForkingAllowed           bool             `json:"forkingAllowed"`
	CodeOfConduct            *string          `json:"codeOfConduct"`
	License                  *string          `json:"license"`
	CreatedAt                string           `json:"createdAt"`
	PushedAt                 string           `json:"pushedAt"`
	LanguageCount            int              `json:"languageCount"`
	TopicCount               int              `json:"topicCount"`
	PrimaryLanguage          *string          `json:"primaryLanguage"`
	Languages                []ExportLanguage `json:"languages"`
	Topics                   []ExportTopic    `json:"topics"`
	Parent                   *ExportParentRef `json:"parent,omitempty"`
}

type ExportLanguage struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type ExportTopic struct {
	Name  string `json:"name"`
	Stars int    `json:"stars"`
}

type ExportParentRef struct {
	NameWithOwner string `json:"nameWithOwner"`
}
