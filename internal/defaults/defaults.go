// Package defaults owns the shell's data directory and the files seeded into
// it on first run.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/JiwuChat/
//	Windows: %AppData%\JiwuChat\
//	Linux:   ~/.config/jiwuchat/
//
// Override with JIWUCHAT_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dotjiwuchat/*
var defaultFiles embed.FS

const (
	// ConfigFile is the user override layered over the embedded config.
	ConfigFile = "config.yaml"
	// LockFile guards the single headless instance.
	LockFile = "jiwuchat.lock"
	// InstanceFile records the running instance's PID and API address.
	InstanceFile = "instance.json"
)

// DataDir returns the platform-appropriate data directory.
func DataDir() (string, error) {
	if dir := os.Getenv("JIWUCHAT_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "jiwuchat"), nil
	}
	return filepath.Join(configDir, "JiwuChat"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
// and copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := copyDefaults(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Path joins name onto the data directory.
func Path(name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// copyDefaults writes embedded files that do not exist yet. User edits are
// never overwritten.
func copyDefaults(dir string) error {
	return fs.WalkDir(defaultFiles, "dotjiwuchat", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "dotjiwuchat" {
			return nil
		}

		// embed.FS always uses forward slashes
		destPath := filepath.Join(dir, strings.TrimPrefix(path, "dotjiwuchat/"))
		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		if _, err := os.Stat(destPath); err == nil {
			return nil
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// GetDefault returns the content of a default file by name.
func GetDefault(name string) ([]byte, error) {
	return defaultFiles.ReadFile("dotjiwuchat/" + name)
}
