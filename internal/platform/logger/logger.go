package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON lines on stdout. Level defaults to
// info; GENKAN_LOG_LEVEL=debug turns on debug output.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("GENKAN_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
