package config

import (
	"os"
	"path/filepath"
)

// UserConfigDir returns ~/.hawk, creating no directories.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".hawk"), nil
}

// EnsureUserConfigDir creates the user config directory if absent.
func EnsureUserConfigDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
