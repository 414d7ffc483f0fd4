package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new slog.Logger with log rotation support
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(newLogWriter(cfg.Logging.File), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Logging.Level),
	}))
}

// newLogWriter logs to stdout and, when a file is configured, to a rotating file.
func newLogWriter(file string) io.Writer {
	if file == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return os.Stderr
	}

	fileLogger := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // Megabytes
		MaxBackups: 3,
		MaxAge:     28, // Days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, fileLogger)
}

// ParseLevel maps a config level name to slog; unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
