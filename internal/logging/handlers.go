package logging

import (
	"context"
	"log/slog"
)

// fanout sends each record to every enabled handler, stopping at the first
// handler error.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// minLevel drops records below floor regardless of the inner handler's level.
type minLevel struct {
	inner slog.Handler
	floor slog.Level
}

func (m minLevel) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= m.floor && m.inner.Enabled(ctx, level)
}

func (m minLevel) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < m.floor {
		return nil
	}
	return m.inner.Handle(ctx, r)
}

func (m minLevel) WithAttrs(attrs []slog.Attr) slog.Handler {
	return minLevel{inner: m.inner.WithAttrs(attrs), floor: m.floor}
}

func (m minLevel) WithGroup(name string) slog.Handler {
	return minLevel{inner: m.inner.WithGroup(name), floor: m.floor}
}
