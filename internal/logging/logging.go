// internal/logging/logging.go
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a JSON logger writing to w at the given level name and the
// LevelVar controlling it.
func New(w io.Writer, level string) (*slog.Logger, *slog.LevelVar) {
	logLevel := new(slog.LevelVar)
	SetLevel(level, logLevel)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler), logLevel
}

// SetLevel maps a level name onto v. Unknown names select info.
func SetLevel(level string, v *slog.LevelVar) {
	switch strings.ToLower(level) {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
