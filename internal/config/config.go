// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	DBURL         string `mapstructure:"DB_URL"`
	MigrationsURL string `mapstructure:"MIGRATIONS_URL"`
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	GithubToken   string `mapstructure:"GITHUB_TOKEN"`

	ClickHouseAddr     string `mapstructure:"CLICKHOUSE_ADDR"`
	ClickHouseDatabase string `mapstructure:"CLICKHOUSE_DATABASE"`
	ClickHouseUsername string `mapstructure:"CLICKHOUSE_USERNAME"`
	ClickHousePassword string `mapstructure:"CLICKHOUSE_PASSWORD"`
	ClickHouseBatch    int    `mapstructure:"CLICKHOUSE_BATCH_SIZE"`

	CacheTTL   time.Duration `mapstructure:"CACHE_TTL"`
	CHCacheTTL time.Duration `mapstructure:"CH_CACHE_TTL"`
	// DefaultYear is the year used when a request omits it. 0 means the
	// current year.
	DefaultYear int `mapstructure:"DEFAULT_YEAR"`

	BatchRepoLanguages int `mapstructure:"BATCH_REPO_LANGUAGES"`
	BatchRepoTopics    int `mapstructure:"BATCH_REPO_TOPICS"`
	BatchRepoUpdates   int `mapstructure:"BATCH_REPO_UPDATES"`
	ProgressEvery      int `mapstructure:"PROGRESS_EVERY"`
}

var defaults = map[string]any{
	"LOG_LEVEL":             "info",
	"DB_URL":                "",
	"MIGRATIONS_URL":        "file://migrations",
	"HTTP_ADDR":             ":8080",
	"GITHUB_TOKEN":          "",
	"CLICKHOUSE_ADDR":       "localhost:9000",
	"CLICKHOUSE_DATABASE":   "github_analytics",
	"CLICKHOUSE_USERNAME":   "default",
	"CLICKHOUSE_PASSWORD":   "",
	"CLICKHOUSE_BATCH_SIZE": 5000,
	"CACHE_TTL":             "15m",
	"CH_CACHE_TTL":          "1m",
	"DEFAULT_YEAR":          0,
	"BATCH_REPO_LANGUAGES":  1000,
	"BATCH_REPO_TOPICS":     1000,
	"BATCH_REPO_UPDATES":    500,
	"PROGRESS_EVERY":        500,
}

// LoadConfig reads configuration from a .env file in path (if present) and
// environment variables, which take precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(path)
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ClickHouseBatch <= 0 {
		return nil, errors.New("CLICKHOUSE_BATCH_SIZE must be a positive integer")
	}
	if cfg.CacheTTL <= 0 || cfg.CHCacheTTL <= 0 {
		return nil, errors.New("CACHE_TTL and CH_CACHE_TTL must be positive durations")
	}
	if cfg.DefaultYear < 0 || cfg.DefaultYear > 9999 {
		return nil, errors.New("DEFAULT_YEAR must be 0 or a calendar year")
	}
	return &cfg, nil
}

// RequirePostgres validates the settings needed by commands that use the
// relational store.
func (c *Config) RequirePostgres() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	return nil
}

// RequireGithub validates the settings needed by the export fetcher.
func (c *Config) RequireGithub() error {
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	return nil
}
