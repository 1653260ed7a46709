package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigParsing(t *testing.T) {
	configContent := `# Global options
log.level debug
replay.playback-speed slow

[run]
timeout 1m
show-log yes

[state]
pretty false`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if value, ok := config.GetGlobalOption("log.level"); !ok || value != "debug" {
		t.Errorf("Expected log.level=debug, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetCommandOption("run", "timeout"); !ok || value != "1m" {
		t.Errorf("Expected run.timeout=1m, got %s (exists: %v)", value, ok)
	}

	// fallback to global options
	if value, ok := config.GetCommandOption("state", "replay.playback-speed"); !ok || value != "slow" {
		t.Errorf("Expected state fallback to global, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetCommandOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}

	if config.HasWarnings() {
		t.Errorf("Expected no warnings, got %v", config.Warnings)
	}
}

func TestConfigValueKeepsInnerSpaces(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(`timeline.filter type == "script" && duration > 0.5`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if got := config.Global["timeline.filter"]; got != `type == "script" && duration > 0.5` {
		t.Fatalf("unexpected filter %q", got)
	}
}

func TestConfigWarnings(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("verbose true\nhover.mouse-over-delay soon\n[run]\nbogus 1\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if len(config.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %q", config.Warnings)
	}
	joined := strings.Join(config.Warnings, "\n")
	for _, want := range []string{`"verbose"`, `"hover.mouse-over-delay"`, `"bogus"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected a warning mentioning %s, got %q", want, config.Warnings)
		}
	}
}

func TestConfigEmptySection(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("[ ]\n")); err == nil {
		t.Fatal("expected an error for an empty section name")
	}
}

func TestEmptyConfig(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}

	if len(config.Global) != 0 || len(config.Commands) != 0 {
		t.Errorf("Expected empty config, got %+v", config)
	}
}

func TestSetGlobalAndCommandOptions(t *testing.T) {
	cfg := NewConfig()

	cfg.SetGlobalOption("render.width", "80")
	if got, ok := cfg.GetGlobalOption("render.width"); !ok || got != "80" {
		t.Fatalf("expected render.width=80, got %q exists=%v", got, ok)
	}

	cfg.SetCommandOption("run", "timeout", "30s")
	cfg.SetGlobalOption("timeout", "10s")
	if got, ok := cfg.GetCommandOption("run", "timeout"); !ok || got != "30s" {
		t.Fatalf("expected run.timeout to shadow global, got %q exists=%v", got, ok)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing-config"))
	if err != nil {
		t.Fatalf("expected no error loading missing config, got %v", err)
	}

	if len(cfg.Global) != 0 || len(cfg.Commands) != 0 {
		t.Fatalf("expected empty config for missing file, got %+v", cfg)
	}
}

func TestLoadFromPathRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, []byte("log.level debug\n"), 0600); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}
	link := filepath.Join(dir, "config")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := LoadFromPath(link); err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Fatalf("expected symlink rejection, got %v", err)
	}
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("render.width 100"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(EnvConfigPath, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load success, got %v", err)
	}

	if got, ok := cfg.GetGlobalOption("render.width"); !ok || got != "100" {
		t.Fatalf("expected render.width from env-config, got %q exists=%v", got, ok)
	}
}

func TestGetConfigPathDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	t.Setenv(EnvConfigPath, "")

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath returned error: %v", err)
	}

	if expected := filepath.Join(dir, ".replay-inspector", "config"); got != expected {
		t.Fatalf("expected default path %q, got %q", expected, got)
	}
}
