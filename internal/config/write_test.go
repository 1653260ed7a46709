package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	return string(data)
}

func TestSetKeyInFile_NewFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config")

	if err := SetKeyInFile(path, "render.width", "80"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	if got := strings.TrimSpace(readFile(t, path)); got != "render.width 80" {
		t.Fatalf("expected 'render.width 80', got %q", got)
	}
}

func TestSetKeyInFile_UpdatesInPlace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	initial := "# replay settings\nreplay.playback-speed fast\nlog.level info\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	if err := SetKeyInFile(path, "replay.playback-speed", "slow"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	want := "# replay settings\nreplay.playback-speed slow\nlog.level info\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetKeyInFile_InsertsBeforeFirstSection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	initial := "log.level info\n\n[run]\ntimeout 10s\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	// a key of the same name inside a section is left alone
	if err := SetKeyInFile(path, "timeout", "1m"); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}

	content := readFile(t, path)
	if !strings.Contains(content, "timeout 10s") {
		t.Fatalf("expected section key preserved, got %q", content)
	}
	if strings.Index(content, "timeout 1m") > strings.Index(content, "[run]") {
		t.Fatalf("expected global key before [run], got %q", content)
	}
}

func TestSetKeyInFile_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")

	for _, v := range []string{"10ms", "20ms", "30ms"} {
		if err := SetKeyInFile(path, "timeline.frame-interval", v); err != nil {
			t.Fatalf("SetKeyInFile returned error: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the config file, got %d entries", len(entries))
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if v, _ := cfg.GetGlobalOption("timeline.frame-interval"); v != "30ms" {
		t.Fatalf("expected last value, got %q", v)
	}
}
