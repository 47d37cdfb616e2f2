package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the sift home directory.
	DefaultDirName = ".sift"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// LogFileName is the rotated server log written under LogsDir.
	LogFileName = "sift.log"
)

// Dir represents the sift home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.sift).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// LogsDir returns the directory for server logs.
func (d *Dir) LogsDir() string {
	return filepath.Join(d.path, "logs")
}

// LogPath returns the path of the rotated server log file.
func (d *Dir) LogPath() string {
	return filepath.Join(d.LogsDir(), LogFileName)
}

// ExportsDir returns the directory for exported extraction results.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// ExportPath returns the default export location for a session's data.
func (d *Dir) ExportPath(sessionID string) string {
	return filepath.Join(d.ExportsDir(), sessionID, "data.json")
}

// SchemasDir returns the directory where users keep reusable schema files.
func (d *Dir) SchemasDir() string {
	return filepath.Join(d.path, "schemas")
}

// PromptsDir returns the directory holding prompt overrides (<key>.tmpl).
func (d *Dir) PromptsDir() string {
	return filepath.Join(d.path, "prompts")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.LogsDir(), d.ExportsDir(), d.SchemasDir(), d.PromptsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
