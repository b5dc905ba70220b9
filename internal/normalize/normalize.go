// internal/normalize/normalize.go
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	custom_errors "github-repo-analytics/internal/errors"
	"github-repo-analytics/internal/model"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A trailing "Z" is treated as an
// explicit +00:00 offset and values without an offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Record converts a raw export entry into a Record for the relational path.
// It never fails: counts default to 0, absent strings stay nil and timestamps
// that do not parse become nil.
func Record(raw map[string]any) model.Record {
	owner := ownerLogin(raw)
	name := stringValue(raw["name"])
	nwo := stringValue(raw["nameWithOwner"])
	if before, _, found := strings.Cut(nwo, "/"); owner == "" && found {
		owner = before
	}
	if nwo == "" && owner != "" && name != "" {
		nwo = owner + "/" + name
	}

	rec := model.Record{
		OwnerLogin:               owner,
		Name:                     name,
		NameWithOwner:            nwo,
		Description:              nullableString(raw["description"]),
		License:                  nullableString(raw["license"]),
		CodeOfConduct:            nullableString(raw["codeOfConduct"]),
		Stars:                    intOrDefault(raw["stars"], 0),
		Forks:                    intOrDefault(raw["forks"], 0),
		Watchers:                 intOrDefault(raw["watchers"], 0),
		Issues:                   intOrDefault(raw["issues"], 0),
		PullRequests:             intOrDefault(raw["pullRequests"], 0),
		DiskUsageKB:              intOrDefault(raw["diskUsageKb"], 0),
		AssignableUserCount:      intOrDefault(raw["assignableUserCount"], 0),
		DefaultBranchCommitCount: intOrDefault(raw["defaultBranchCommitCount"], 0),
		TopicCount:               intOrDefault(raw["topicCount"], 0),
		IsFork:                   boolOrDefault(raw["isFork"], false),
		IsArchived:               boolOrDefault(raw["isArchived"], false),
		ForkingAllowed:           boolOrDefault(raw["forkingAllowed"], true),
		HasParent:                truthy(raw["parent"]),
		PrimaryLanguage:          stringValue(raw["primaryLanguage"]),
	}
	if n, ok := toInt(raw["languageCount"]); ok {
		rec.LanguageCount = &n
	}
	if s, ok := raw["createdAt"].(string); ok {
		if t, err := ParseTimestamp(s); err == nil {
			rec.CreatedAt = &t
			year := t.Year()
			rec.CreatedYear = &year
		}
	}
	if s, ok := raw["pushedAt"].(string); ok {
		if t, err := ParseTimestamp(s); err == nil {
			rec.PushedAt = &t
		}
	}

	for _, item := range objects(raw["languages"]) {
		rec.Languages = append(rec.Languages, model.LanguageEntry{
			Name: stringValue(item["name"]),
			Size: intOrDefault(item["size"], 0),
		})
	}
	for _, item := range objects(raw["topics"]) {
		rec.Topics = append(rec.Topics, model.TopicEntry{
			Name:  stringValue(item["name"]),
			Stars: intOrDefault(item["stars"], 0),
		})
	}
	return rec
}

// StrictRecord converts a raw export entry for the analytical path, where
// every column is non-nullable. Missing required keys, non-numeric counts and
// unparseable timestamps are reported as errors instead of being defaulted.
func StrictRecord(raw map[string]any) (model.Record, error) {
	var rec model.Record

	owner := ownerLogin(raw)
	if owner == "" {
		return rec, &custom_errors.MissingFieldError{Field: "owner"}
	}
	rec.OwnerLogin = owner

	var err error
	if rec.Name, err = requiredString(raw, "name"); err != nil {
		return rec, err
	}
	if rec.NameWithOwner, err = requiredString(raw, "nameWithOwner"); err != nil {
		return rec, err
	}

	counts := []struct {
		field string
		dst   *int64
	}{
		{"stars", &rec.Stars},
		{"forks", &rec.Forks},
		{"watchers", &rec.Watchers},
		{"topicCount", &rec.TopicCount},
		{"diskUsageKb", &rec.DiskUsageKB},
		{"pullRequests", &rec.PullRequests},
		{"issues", &rec.Issues},
		{"assignableUserCount", &rec.AssignableUserCount},
	}
	for _, c := range counts {
		if *c.dst, err = requiredCount(raw, c.field); err != nil {
			return rec, err
		}
	}
	languageCount, err := requiredCount(raw, "languageCount")
	if err != nil {
		return rec, err
	}
	rec.LanguageCount = &languageCount
	rec.DefaultBranchCommitCount = intOrDefault(raw["defaultBranchCommitCount"], 0)

	for _, f := range []struct {
		field string
		dst   *bool
	}{
		{"isFork", &rec.IsFork},
		{"isArchived", &rec.IsArchived},
		{"forkingAllowed", &rec.ForkingAllowed},
	} {
		v, ok := raw[f.field]
		if !ok {
			return rec, &custom_errors.MissingFieldError{Field: f.field}
		}
		*f.dst = truthy(v)
	}

	createdAt, err := requiredTimestamp(raw, "createdAt")
	if err != nil {
		return rec, err
	}
	pushedAt, err := requiredTimestamp(raw, "pushedAt")
	if err != nil {
		return rec, err
	}
	year := createdAt.Year()
	rec.CreatedAt, rec.PushedAt, rec.CreatedYear = &createdAt, &pushedAt, &year

	rec.Description = emptyIfNull(raw["description"])
	rec.License = emptyIfNull(raw["license"])
	rec.CodeOfConduct = emptyIfNull(raw["codeOfConduct"])
	rec.PrimaryLanguage = stringValue(raw["primaryLanguage"])
	rec.HasParent = truthy(raw["parent"])

	for _, item := range objects(raw["languages"]) {
		name, err := requiredString(item, "name")
		if err != nil {
			return rec, fmt.Errorf("languages: %w", err)
		}
		size, err := requiredCount(item, "size")
		if err != nil {
			return rec, fmt.Errorf("languages: %w", err)
		}
		rec.Languages = append(rec.Languages, model.LanguageEntry{Name: name, Size: size})
	}
	for _, item := range objects(raw["topics"]) {
		name, err := requiredString(item, "name")
		if err != nil {
			return rec, fmt.Errorf("topics: %w", err)
		}
		stars, err := optionalCount(item, "stars")
		if err != nil {
			return rec, fmt.Errorf("topics: %w", err)
		}
		rec.Topics = append(rec.Topics, model.TopicEntry{Name: name, Stars: stars})
	}
	return rec, nil
}

func ownerLogin(raw map[string]any) string {
	switch v := raw["owner"].(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if login := stringValue(v["login"]); login != "" {
			return login
		}
	}
	return stringValue(raw["owner_login"])
}

func requiredString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", &custom_errors.MissingFieldError{Field: field}
	}
	s, ok := v.(string)
	if !ok {
		return "", &custom_errors.InvalidFieldError{Field: field, Value: v}
	}
	return s, nil
}

func requiredCount(raw map[string]any, field string) (int64, error) {
	v, ok := raw[field]
	if !ok {
		return 0, &custom_errors.MissingFieldError{Field: field}
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, &custom_errors.InvalidFieldError{Field: field, Value: v}
	}
	return n, nil
}

func optionalCount(raw map[string]any, field string) (int64, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, nil
	}
	return requiredCount(raw, field)
}

func requiredTimestamp(raw map[string]any, field string) (time.Time, error) {
	v, ok := raw[field]
	if !ok {
		return time.Time{}, &custom_errors.MissingFieldError{Field: field}
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &custom_errors.InvalidFieldError{Field: field, Value: v}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, &custom_errors.InvalidFieldError{Field: field, Value: v, Err: err}
	}
	return t, nil
}

func objects(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func nullableString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func emptyIfNull(v any) *string {
	s := stringValue(v)
	return &s
}

// toInt accepts the numeric forms produced by encoding/json, with or without UseNumber.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func intOrDefault(v any, def int64) int64 {
	if n, ok := toInt(v); ok {
		return n
	}
	return def
}

func boolOrDefault(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}
