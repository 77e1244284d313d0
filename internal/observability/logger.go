package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide logger. Diagnostics go to stderr so the
// exec'd main process keeps stdout to itself. LOG_LEVEL picks the threshold,
// defaulting to info.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
