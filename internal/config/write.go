package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SetKeyInFile sets a global option in the config file at path, creating
// the file and its directory when missing. An existing global line for key
// is rewritten in place; otherwise the line goes after the last global line
// before the first [section]. Comments, blank lines and sections are kept.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	line := key
	if value != "" {
		line += " " + value
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	// globalEnd is the index the new line is inserted at
	globalEnd := len(lines)
	replaced := false
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			globalEnd = i
			break
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		// keep blank lines separating the globals from the first section
		for globalEnd > 0 && globalEnd < len(lines) && strings.TrimSpace(lines[globalEnd-1]) == "" {
			globalEnd--
		}
		lines = slices.Insert(lines, globalEnd, line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

// atomicWriteFile writes data to a temporary file in the same directory,
// syncs it, then renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
