package pipeline

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the run logger: JSON records on stderr. Level is
// debug, info, warn or error; anything else means info.
func NewLogger(level string) *slog.Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lv slog.Level

	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv}))
}
