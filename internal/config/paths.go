package config

import (
	"os"
	"path/filepath"
)

// Environment variables that relocate pyship state, mainly for tests and
// sandboxed CI runs.
const (
	// EnvHome overrides the data directory (default ~/.pyship).
	EnvHome = "PYSHIP_HOME"
	// EnvDB overrides the full path to the history database file.
	EnvDB = "PYSHIP_DB"
)

// DataDir returns the directory used to store pyship data.
func DataDir() (string, error) {
	if custom := os.Getenv(EnvHome); custom != "" {
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	// A dot-directory in the user's home on all platforms.
	return filepath.Join(home, ".pyship"), nil
}

// EnsureDataDir creates the data directory if needed and returns its path.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

// DBPath returns the full path to the SQLite history database file.
func DBPath() (string, error) {
	if custom := os.Getenv(EnvDB); custom != "" {
		return custom, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "pyship.db"), nil
}

// CredentialsPath returns the full path to the stored credentials file.
func CredentialsPath() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "credentials.json"), nil
}
