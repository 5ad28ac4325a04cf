// Package logging builds the process slog logger: console output plus
// rotated main and error files.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	mainLogName  = "harvest.log"
	errorLogName = "errors.log"
)

var (
	openFiles   []*lumberjack.Logger
	openFilesMu sync.Mutex
)

// Initialize builds a logger from cfg and installs it as slog's default.
func Initialize(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	slog.Info("Logging initialized",
		"level", cfg.Level,
		"dir", cfg.Dir,
		"console", cfg.Console.Enabled,
		"file", cfg.File.Enabled,
	)
	return nil
}

// NewLogger returns a logger writing to the enabled sinks. With file output
// on, warn and error records are also written to errors.log.
func NewLogger(cfg Config) (*slog.Logger, error) {
	var handlers fanout

	if cfg.Console.Enabled {
		handlers = append(handlers, newHandler(os.Stdout, cfg.Console.Format, parseLevel(cfg.Console.Level)))
	}

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		main := openRotated(filepath.Join(cfg.Dir, mainLogName), cfg.Rotation)
		handlers = append(handlers, newHandler(main, cfg.File.Format, parseLevel(cfg.File.Level)))

		errs := openRotated(filepath.Join(cfg.Dir, errorLogName), cfg.Rotation)
		handlers = append(handlers, minLevel{
			inner: newHandler(errs, cfg.File.Format, slog.LevelWarn),
			floor: slog.LevelWarn,
		})
	}

	switch len(handlers) {
	case 0:
		return slog.New(newHandler(io.Discard, "text", slog.LevelError)), nil
	case 1:
		return slog.New(handlers[0]), nil
	}
	return slog.New(handlers), nil
}

// Shutdown closes every rotated file opened by NewLogger.
func Shutdown() error {
	openFilesMu.Lock()
	defer openFilesMu.Unlock()

	var firstErr error
	for _, f := range openFiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file: %w", err)
		}
	}
	openFiles = nil
	return firstErr
}

func openRotated(path string, r RotationConfig) *lumberjack.Logger {
	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSize,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAge,
		Compress:   r.Compress,
	}
	openFilesMu.Lock()
	openFiles = append(openFiles, f)
	openFilesMu.Unlock()
	return f
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
