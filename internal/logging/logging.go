package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn and error (case-insensitive) to a
// slog.Level. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Options configures New.
type Options struct {
	Level slog.Level
	// BufferSize bounds the in-memory entries.
	BufferSize int
	// File, when set, receives JSON records.
	File io.Writer
}

// New returns a logger feeding a fresh Buffer and, when configured, a JSON
// file handler.
func New(opts Options) (*slog.Logger, *Buffer) {
	buf := NewBuffer(opts.BufferSize, opts.Level)
	handlers := []slog.Handler{buf}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, &slog.HandlerOptions{Level: opts.Level}))
	}
	return slog.New(fanout(handlers)), buf
}

// fanout sends each record to every handler enabled for its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
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
