// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github-repo-analytics/internal/model"
)

const (
	maxRetries        = 3
	defaultRetryDelay = 2 * time.Second
	// rateLimitSlack is added to the advertised reset time before retrying.
	rateLimitSlack = 500 * time.Millisecond
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh         *github.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewClient creates and configures a new Client instance. An empty token
// produces an unauthenticated client.
func NewClient(token string, logger *slog.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{
		gh:         github.NewClient(hc),
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// GetRepository fetches repository details.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, "get repository", func() (*github.Response, error) {
		r, resp, err := c.gh.Repositories.Get(ctx, owner, name)
		repo = r
		return resp, err
	})
	return repo, err
}

// ListLanguages returns the byte count of each language in a repository.
func (c *Client) ListLanguages(ctx context.Context, owner, name string) (map[string]int, error) {
	var languages map[string]int
	err := c.withRetry(ctx, "list languages", func() (*github.Response, error) {
		l, resp, err := c.gh.Repositories.ListLanguages(ctx, owner, name)
		languages = l
		return resp, err
	})
	return languages, err
}

// FetchExportRecord builds the bulk export entry for one repository.
func (c *Client) FetchExportRecord(ctx context.Context, owner, name string) (model.ExportRecord, error) {
	repo, err := c.GetRepository(ctx, owner, name)
	if err != nil {
		return model.ExportRecord{}, err
	}
	languages, err := c.ListLanguages(ctx, owner, name)
	if err != nil {
		return model.ExportRecord{}, err
	}
	return toExportRecord(repo, languages), nil
}

// withRetry runs call until it succeeds, fails with a non-retryable error or
// maxRetries attempts have been made. Rate limit errors wait for the reset
// time; server errors back off linearly.
func (c *Client) withRetry(ctx context.Context, op string, call func() (*github.Response, error)) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err = call()
		if err == nil {
			return nil
		}

		wait, retryable := c.backoff(err, attempt)
		if !retryable || attempt == maxRetries {
			return err
		}
		c.logger.Warn("GitHub request failed, retrying", "op", op, "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (c *Client) backoff(err error, attempt int) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return max(time.Until(rateErr.Rate.Reset.Time), 0) + rateLimitSlack, true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if abuseErr.RetryAfter != nil {
			return *abuseErr.RetryAfter, true
		}
		return c.retryDelay * time.Duration(attempt), true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
		return c.retryDelay * time.Duration(attempt), true
	}
	return 0, false
}

// toExportRecord translates a repository and its language breakdown into the
// export format. Languages are ordered by size, largest first.
func toExportRecord(r *github.Repository, languages map[string]int) model.ExportRecord {
	rec := model.ExportRecord{
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		NameWithOwner:   r.GetFullName(),
		Description:     r.GetDescription(),
		Stars:           r.GetStargazersCount(),
		Forks:           r.GetForksCount(),
		Watchers:        r.GetSubscribersCount(),
		Issues:          r.GetOpenIssuesCount(),
		DiskUsageKB:     r.GetSize(),
		IsFork:          r.GetFork(),
		IsArchived:      r.GetArchived(),
		ForkingAllowed:  r.GetAllowForking(),
		CreatedAt:       r.GetCreatedAt().UTC().Format(time.RFC3339),
		PushedAt:        r.GetPushedAt().UTC().Format(time.RFC3339),
		LanguageCount:   len(languages),
		TopicCount:      len(r.Topics),
		PrimaryLanguage: r.Language,
		Languages:       make([]model.ExportLanguage, 0, len(languages)),
		Topics:          make([]model.ExportTopic, 0, len(r.Topics)),
	}
	if rec.NameWithOwner == "" {
		rec.NameWithOwner = rec.Owner + "/" + rec.Name
	}
	if r.License != nil {
		license := r.License.GetName()
		rec.License = &license
	}
	if r.CodeOfConduct != nil {
		coc := r.CodeOfConduct.GetName()
		rec.CodeOfConduct = &coc
	}
	if r.Parent != nil {
		rec.Parent = &model.ExportParentRef{NameWithOwner: r.Parent.GetFullName()}
	}

	for lang, size := range languages {
		rec.Languages = append(rec.Languages, model.ExportLanguage{Name: lang, Size: size})
	}
	sort.Slice(rec.Languages, func(i, j int) bool {
		if rec.Languages[i].Size != rec.Languages[j].Size {
			return rec.Languages[i].Size > rec.Languages[j].Size
		}
		return rec.Languages[i].Name < rec.Languages[j].Name
	})
	for _, topic := range r.Topics {
		rec.Topics = append(rec.Topics, model.ExportTopic{Name: topic})
	}
	return rec
}
