package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a slog.Logger using the JSON handler when LOG_FORMAT=json
// and the text handler otherwise, filtered at LOG_LEVEL.
func NewLogger(cfg *LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel("")}
	if cfg == nil {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	opts.Level = parseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
