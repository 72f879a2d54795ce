package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"

	"github.com/allisson/go-env"
)

const (
	// ProjectConfigFileName is the per-directory setup file.
	ProjectConfigFileName = ".secretsync.toml"

	appDirName = "secretsync"
)

// Settings holds the on-disk locations used by the CLI.
type Settings struct {
	ConfigDir      string
	UserConfigPath string
	AuditLogPath   string
}

// DefaultSettings resolves locations under $XDG_CONFIG_HOME/secretsync,
// falling back to the platform user config directory.
func DefaultSettings() (*Settings, error) {
	configDir := env.GetString("XDG_CONFIG_HOME", "")
	if configDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("error getting config directory: %w", err)
		}
		configDir = dir
	}

	return NewSettings(filepath.Join(configDir, appDirName)), nil
}

// NewSettings returns settings rooted at configDir.
func NewSettings(configDir string) *Settings {
	return &Settings{
		ConfigDir:      configDir,
		UserConfigPath: filepath.Join(configDir, "config.toml"),
		AuditLogPath:   filepath.Join(configDir, "audit.jsonl"),
	}
}

// FindProjectRoot walks up from start to the nearest directory holding a
// project setup file.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		_, err := os.Stat(filepath.Join(dir, ProjectConfigFileName))
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", kerrors.ErrProjectNotConfigured
		}
		dir = parent
	}
}
