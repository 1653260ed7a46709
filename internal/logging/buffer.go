// Package logging carries the slog plumbing shared by the commands: an
// in-memory ring buffer handler, a size-rotated log file, and the fan-out
// between them.
package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is used when a Buffer is created with a non-positive size.
const DefaultBufferSize = 1000

// Entry is a single buffered log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

type ring struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// Buffer is a slog.Handler keeping the most recent entries in memory.
// Handlers derived through WithAttrs and WithGroup share the same entries.
type Buffer struct {
	ring   *ring
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewBuffer returns a Buffer holding at most size entries, recording
// records at or above level.
func NewBuffer(size int, level slog.Leveler) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &Buffer{
		ring:  &ring{entries: make([]Entry, 0, size), max: size},
		level: level,
	}
}

// Enabled implements slog.Handler.
func (h *Buffer) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Buffer) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		flatten(attrs, prefix, a)
		return true
	})

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
	}
	if len(attrs) > 0 {
		entry.Attrs = attrs
	}

	r := h.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.max {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.max-1]
	}
	r.entries = append(r.entries, entry)
	return nil
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			flatten(dst, key, g)
		}
		return
	}
	dst[key] = a.Value.String()
}

// WithAttrs implements slog.Handler.
func (h *Buffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	out := *h
	out.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	out.attrs = append(out.attrs, h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a = slog.Attr{Key: prefix + "." + a.Key, Value: a.Value}
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

// WithGroup implements slog.Handler.
func (h *Buffer) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.groups = append(append([]string(nil), h.groups...), name)
	return &out
}

// Entries returns a copy of every buffered entry, oldest first.
func (h *Buffer) Entries() []Entry {
	return h.Recent(0)
}

// Recent returns the most recent count entries. A non-positive count
// returns all of them.
func (h *Buffer) Recent(count int) []Entry {
	r := h.ring
	r.mu.RLock()
	defer r.mu.RUnlock()

	if count <= 0 || count > len(r.entries) {
		count = len(r.entries)
	}
	out := make([]Entry, count)
	copy(out, r.entries[len(r.entries)-count:])
	return out
}

// Search returns the entries whose message, attribute keys or attribute
// values contain query, case-insensitively.
func (h *Buffer) Search(query string) []Entry {
	r := h.ring
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []Entry
	for _, entry := range r.entries {
		if strings.Contains(strings.ToLower(entry.Message), query) {
			matches = append(matches, entry)
			continue
		}
		for key, value := range entry.Attrs {
			if strings.Contains(strings.ToLower(key), query) ||
				strings.Contains(strings.ToLower(value), query) {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}

// Clear removes all entries.
func (h *Buffer) Clear() {
	r := h.ring
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

var _ slog.Handler = (*Buffer)(nil)
