package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileOnly(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Console.Enabled = false
	cfg.Dir = t.TempDir()
	return cfg
}

func TestNewLogger_WritesMainLog(t *testing.T) {
	cfg := fileOnly(t)

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("listing created", "id", "abc")
	require.NoError(t, Shutdown())

	content, err := os.ReadFile(filepath.Join(cfg.Dir, "harvest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "listing created")
	assert.Contains(t, string(content), "id=abc")
}

func TestNewLogger_JSONFormat(t *testing.T) {
	cfg := fileOnly(t)
	cfg.File.Format = "json"

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("test json", "key", "value")
	require.NoError(t, Shutdown())

	content, err := os.ReadFile(filepath.Join(cfg.Dir, "harvest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"test json"`)
	assert.Contains(t, string(content), `"key":"value"`)
}

func TestNewLogger_ErrorLogSeparation(t *testing.T) {
	cfg := fileOnly(t)

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	logger.Info("info message")
	logger.Warn("warning message")
	logger.Error("error message")
	require.NoError(t, Shutdown())

	main, err := os.ReadFile(filepath.Join(cfg.Dir, "harvest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "info message")
	assert.Contains(t, string(main), "error message")

	errs, err := os.ReadFile(filepath.Join(cfg.Dir, "errors.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "info message")
	assert.Contains(t, string(errs), "warning message")
	assert.Contains(t, string(errs), "error message")
}

func TestNewLogger_NoSinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console.Enabled = false
	cfg.File.Enabled = false

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestInitialize_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := fileOnly(t)
	require.NoError(t, Initialize(cfg))
	slog.Info("global test message")
	require.NoError(t, Shutdown())

	content, err := os.ReadFile(filepath.Join(cfg.Dir, "harvest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "global test message")
}

func TestFanoutAndMinLevel(t *testing.T) {
	var all, warn bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		minLevel{inner: slog.NewTextHandler(&warn, nil), floor: slog.LevelWarn},
	}
	logger := slog.New(h).With("component", "test").WithGroup("g")

	logger.Debug("quiet")
	logger.Warn("loud", "k", "v")

	assert.Contains(t, all.String(), "quiet")
	assert.Contains(t, all.String(), "component=test")
	assert.Contains(t, all.String(), "g.k=v")
	assert.NotContains(t, warn.String(), "quiet")
	assert.Contains(t, warn.String(), "loud")
	assert.False(t, minLevel{inner: h, floor: slog.LevelError}.Enabled(context.Background(), slog.LevelWarn))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"invalid": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
