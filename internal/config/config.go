// Package config locates dbshell's configuration directory: debug
// logs, command history, and per-connection query scratch files all
// live under it.
package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const dirName = "dbshell"

// Dir returns $HOME/.config/dbshell, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve home directory")
	}
	dir := filepath.Join(home, ".config", dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrapf(err, "failed to create config directory %s", dir)
	}
	return dir, nil
}

// DebugLogPath returns the path --debug writes structured logs to.
func DebugLogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

// HistoryPath returns the path the command-history file lives at.
func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".command_history.txt"), nil
}

// CollectionsPath returns the path the language-server's collection-name
// completion list is written to and read from.
func CollectionsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".collections.txt"), nil
}
