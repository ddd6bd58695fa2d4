// Package logging builds the process logger: slog to stderr, with an
// optional rotated file copy. Command output stays on stdout.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sydlexius/gigbook/internal/config"
)

// Log file rotation bounds.
const (
	fileMaxSizeMB  = 20
	fileMaxBackups = 3
	fileMaxAgeDays = 30
)

// New builds a logger from the logging configuration. The returned
// closer releases the rotated file writer and may be nil-safe-closed.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	writer, closer := buildWriter(cfg.File)
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler), closer
}

// buildWriter returns stderr, teed into a rotating file when one is
// configured.
func buildWriter(path string) (io.Writer, io.Closer) {
	if path == "" {
		return os.Stderr, noopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
	}
	return io.MultiWriter(os.Stderr, lj), lj
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch s {
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

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
