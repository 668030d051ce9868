// Package logging configures runtime JSONL logging output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rbright/parley/internal/config"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 14
)

// Runtime bundles the configured logger and its rotating file sink.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	// Writer is the raw sink, shared with the HTTP access log.
	Writer io.Writer
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger rooted at the resolved state path.
func New(level string) (Runtime, error) {
	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	h := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: ParseLevel(level)})
	logger := slog.New(h)
	return Runtime{Logger: logger, Path: path, Writer: sink, closer: sink}, nil
}

// ParseLevel maps a config level name to slog; unknown names are info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func resolveLogPath() (string, error) {
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "log.jsonl"), nil
}
