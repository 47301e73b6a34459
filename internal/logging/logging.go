// ABOUTME: Structured logging setup for telegram-remote binaries
// ABOUTME: Builds slog handlers with level/format selection and optional rotation

package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls handler construction.
type Options struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is "text" (default) or "json".
	Format string

	// Dir, when set, routes logs to Dir/telegram-remote.log with rotation
	// instead of stdout.
	Dir string

	// MaxSizeMB is the rotation threshold (default 10).
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep (default 5).
	MaxBackups int
}

// Setup builds a logger from the given options and installs it as the
// process default.
func Setup(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	var w io.Writer = os.Stdout
	if opts.Dir != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		w = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "telegram-remote.log"),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ForComponent returns a child of the default logger tagged with the
// component name.
func ForComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

func parseLevel(level string) slog.Level {
	switch level {
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
