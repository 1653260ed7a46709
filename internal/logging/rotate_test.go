package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "inspector.log")
	w, err := OpenRotatingFile(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	chunk := []byte(strings.Repeat("x", 700*1024))
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Equal(t, int64(len(chunk)), info.Size(), p)
	}
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "backups beyond the limit are removed")
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.log")
	w, err := OpenRotatingFile(path, 0, -1)
	require.NoError(t, err)
	defer w.Close()

	chunk := []byte(strings.Repeat("y", 600*1024))
	for i := 0; i < 2; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRotatingFile_AppendsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

	w, err := OpenRotatingFile(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("next\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nnext\n", string(data))
}
