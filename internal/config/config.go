package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// Config holds option values read from a config file. The file has one
// `name value` pair per line; everything after the first space is the
// value. A `[name]` line starts a section whose options apply to the
// command of that name.
type Config struct {
	Global   map[string]string
	Commands map[string]map[string]string
	// Warnings lists schema problems found while loading.
	Warnings []string
}

// NewConfig returns an empty Config.
func NewConfig() *Config {
	return &Config{
		Global:   map[string]string{},
		Commands: map[string]map[string]string{},
	}
}

// LoadFromPath reads the config file at path. A missing file is an empty
// config; a symlink is refused.
func LoadFromPath(path string) (*Config, error) {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	case info.Mode()&fs.ModeSymlink != 0:
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses a config. Blank lines and lines starting with #
// are skipped. Unknown keys and badly typed values become Warnings.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	options := c.Global

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", line[0] == '#':
		case line[0] == '[' && line[len(line)-1] == ']':
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, fmt.Errorf("line %d: empty section name", n)
			}
			if c.Commands[name] == nil {
				c.Commands[name] = map[string]string{}
			}
			options = c.Commands[name]
		default:
			key, value, _ := strings.Cut(line, " ")
			options[key] = strings.TrimSpace(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(c, DefaultSchema()) {
		c.warn(issue)
	}
	return c, nil
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// HasWarnings reports whether loading produced any warnings.
func (c *Config) HasWarnings() bool { return len(c.Warnings) != 0 }

func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

func (c *Config) SetGlobalOption(name, value string) { c.Global[name] = value }

// GetCommandOption looks name up in the command's section, falling back
// to the global options.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if v, ok := c.Commands[command][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

func (c *Config) SetCommandOption(command, name, value string) {
	section, ok := c.Commands[command]
	if !ok {
		section = map[string]string{}
		c.Commands[command] = section
	}
	section[name] = value
}

// parseBool accepts true/false, 1/0, yes/no and on/off in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}
