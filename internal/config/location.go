package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "REPLAY_INSPECTOR_CONFIG"

// GetConfigPath returns the configuration file path. It first checks the
// REPLAY_INSPECTOR_CONFIG environment variable, then falls back to
// ~/.replay-inspector/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".replay-inspector", "config"), nil
}
