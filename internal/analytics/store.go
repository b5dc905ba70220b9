// internal/analytics/store.go
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github-repo-analytics/internal/model"
)

const (
	tableRepositories = "repositories"
	tableLanguages    = "repository_languages"
	tableTopics       = "repository_topics"

	statisticsLimit = 20
)

var _ Writer = (*Store)(nil)

// Config holds the ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Store is the ClickHouse implementation of Writer and of the analytical
// read queries. Every statement names its tables with the database prefix,
// so the connection itself never depends on the database existing.
type Store struct {
	conn     driver.Conn
	database string
}

// Open connects to ClickHouse and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return NewStore(conn, cfg.Database), nil
}

// NewStore wraps an existing connection.
func NewStore(conn driver.Conn, database string) *Store {
	return &Store{conn: conn, database: database}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s`.`%s`", s.database, name)
}

// EnsureSchema creates the database and the three tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			owner String,
			name String,
			name_with_owner String,
			description String,
			stars UInt32,
			forks UInt32,
			watchers UInt32,
			is_fork UInt8,
			is_archived UInt8,
			language_count UInt16,
			topic_count UInt16,
			disk_usage_kb UInt64,
			pull_requests UInt32,
			issues UInt32,
			primary_language String,
			created_at DateTime,
			pushed_at DateTime,
			created_year UInt16,
			created_date Date,
			default_branch_commit_count UInt32,
			license String,
			assignable_user_count UInt16,
			code_of_conduct String,
			forking_allowed UInt8,
			has_parent UInt8
		) ENGINE = MergeTree()
		ORDER BY (created_year, stars, name_with_owner)
		SETTINGS index_granularity = 8192`, s.table(tableRepositories)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			repo_name_with_owner String,
			language String,
			size UInt64,
			created_year UInt16,
			repo_stars UInt32,
			repo_forks UInt32
		) ENGINE = MergeTree()
		ORDER BY (created_year, language, size)
		SETTINGS index_granularity = 8192`, s.table(tableLanguages)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			repo_name_with_owner String,
			topic String,
			topic_stars UInt32,
			created_year UInt16,
			repo_stars UInt32
		) ENGINE = MergeTree()
		ORDER BY (topic, created_year, topic_stars)
		SETTINGS index_granularity = 8192`, s.table(tableTopics)),
	}
	for _, stmt := range statements {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertRepositories(ctx context.Context, rows []RepositoryRow) error {
	return insertRows(ctx, s, tableRepositories, rows)
}

func (s *Store) InsertLanguages(ctx context.Context, rows []LanguageRow) error {
	return insertRows(ctx, s, tableLanguages, rows)
}

func (s *Store) InsertTopics(ctx context.Context, rows []TopicRow) error {
	return insertRows(ctx, s, tableTopics, rows)
}

// insertRows sends rows as a single native batch.
func insertRows[T any](ctx context.Context, s *Store, table string, rows []T) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table(table))
	if err != nil {
		return fmt.Errorf("prepare %s batch: %w", table, err)
	}
	defer batch.Abort()

	for i := range rows {
		if err := batch.AppendStruct(&rows[i]); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s batch: %w", table, err)
	}
	return nil
}

// TopLanguagesByYearAndSize returns the languages with the largest summed
// code size among repositories created in year. Empty language names are
// excluded.
func (s *Store) TopLanguagesByYearAndSize(ctx context.Context, year, limit int) ([]model.LanguageSize, error) {
	var rows []struct {
		Language  string `ch:"language"`
		TotalSize uint64 `ch:"total_size"`
	}
	query := fmt.Sprintf(`
		SELECT language, sum(size) AS total_size
		FROM %s
		WHERE created_year = ? AND language != ''
		GROUP BY language
		ORDER BY total_size DESC, language
		LIMIT ?`, s.table(tableLanguages))
	if err := s.conn.Select(ctx, &rows, query, year, limit); err != nil {
		return nil, fmt.Errorf("top languages by year: %w", err)
	}

	out := make([]model.LanguageSize, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.LanguageSize{
			Language:  r.Language,
			TotalSize: int64(min(r.TotalSize, math.MaxInt64)),
			Year:      year,
		})
	}
	return out, nil
}

// LanguagesByYear returns every (year, language) aggregate ordered by year
// descending, then by distinct repository count descending.
func (s *Store) LanguagesByYear(ctx context.Context) ([]model.YearLanguageStat, error) {
	var rows []struct {
		CreatedYear     uint16 `ch:"created_year"`
		Language        string `ch:"language"`
		RepositoryCount uint64 `ch:"repository_count"`
		TotalStars      uint64 `ch:"total_stars"`
		TotalCodeSize   uint64 `ch:"total_code_size"`
	}
	query := fmt.Sprintf(`
		SELECT
			created_year,
			language,
			count(DISTINCT repo_name_with_owner) AS repository_count,
			sum(repo_stars) AS total_stars,
			sum(size) AS total_code_size
		FROM %s
		WHERE language != '' AND created_year > 0
		GROUP BY created_year, language
		ORDER BY created_year DESC, repository_count DESC, language`, s.table(tableLanguages))
	if err := s.conn.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("languages by year: %w", err)
	}

	out := make([]model.YearLanguageStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.YearLanguageStat{
			Year:               int(r.CreatedYear),
			Language:           r.Language,
			RepositoryCount:    r.RepositoryCount,
			TotalStars:         r.TotalStars,
			TotalCodeSizeBytes: r.TotalCodeSize,
		})
	}
	return out, nil
}

// LanguageStatistics returns the most used languages across all years.
func (s *Store) LanguageStatistics(ctx context.Context) ([]model.LanguageStatistic, error) {
	var rows []struct {
		Language        string  `ch:"language"`
		RepositoryCount uint64  `ch:"repository_count"`
		TotalSize       uint64  `ch:"total_size"`
		AvgStars        float64 `ch:"avg_stars"`
		MaxStars        uint32  `ch:"max_stars"`
	}
	query := fmt.Sprintf(`
		SELECT
			language,
			count(DISTINCT repo_name_with_owner) AS repository_count,
			sum(size) AS total_size,
			avg(repo_stars) AS avg_stars,
			max(repo_stars) AS max_stars
		FROM %s
		WHERE language != ''
		GROUP BY language
		ORDER BY repository_count DESC, language
		LIMIT ?`, s.table(tableLanguages))
	if err := s.conn.Select(ctx, &rows, query, statisticsLimit); err != nil {
		return nil, fmt.Errorf("language statistics: %w", err)
	}

	out := make([]model.LanguageStatistic, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.LanguageStatistic{
			Language:           r.Language,
			RepositoryCount:    r.RepositoryCount,
			TotalCodeSizeBytes: r.TotalSize,
			AverageStars:       roundTo2(r.AvgStars),
			MaxStars:           r.MaxStars,
		})
	}
	return out, nil
}

// RepositoryCount returns the number of rows in the repositories table.
func (s *Store) RepositoryCount(ctx context.Context) (uint64, error) {
	var n uint64
	query := "SELECT count() FROM " + s.table(tableRepositories)
	if err := s.conn.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count repositories: %w", err)
	}
	return n, nil
}

// Truncate removes every row from the three tables.
func (s *Store) Truncate(ctx context.Context) error {
	for _, t := range []string{tableRepositories, tableLanguages, tableTopics} {
		if err := s.conn.Exec(ctx, "TRUNCATE TABLE IF EXISTS "+s.table(t)); err != nil {
			return fmt.Errorf("truncate %s: %w", t, err)
		}
	}
	return nil
}

func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}
