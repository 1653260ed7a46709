package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_FansOut(t *testing.T) {
	var file bytes.Buffer
	logger, buf := New(Options{Level: slog.LevelDebug, BufferSize: 5, File: &file})
	logger.With("component", "loop").Debug("[Loop] started", "n", 1)

	require.Len(t, buf.Entries(), 1)
	assert.Equal(t, "1", buf.Entries()[0].Attrs["n"])

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec))
	assert.Equal(t, "[Loop] started", rec["msg"])
	assert.Equal(t, "loop", rec["component"])
}

func TestNew_BufferOnly(t *testing.T) {
	logger, buf := New(Options{Level: slog.LevelInfo})
	logger.Debug("dropped")
	logger.Info("kept")
	require.Len(t, buf.Entries(), 1)
	assert.True(t, strings.HasPrefix(buf.Entries()[0].Message, "kept"))
}
