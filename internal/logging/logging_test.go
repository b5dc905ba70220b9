// internal/logging/logging_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range cases {
		v := new(slog.LevelVar)
		SetLevel(name, v)
		assert.Equal(t, want, v.Level(), name)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, level := New(&buf, "warn")

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	level.Set(slog.LevelInfo)
	logger.Info("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}
