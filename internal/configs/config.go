package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalScope is the scope used when no directory-specific entry matches.
const GlobalScope = "/"

// UserConfig is the per-user config file. Entries are keyed by the absolute
// directory they apply to.
type UserConfig struct {
	Scoped map[string]ScopeConfig `toml:"scoped"`
}

// ScopeConfig holds the login state for one directory scope.
type ScopeConfig struct {
	// Token is the device token. User tokens are stored sealed, service tokens in clear.
	Token         string `toml:"token,omitempty"`
	APIHost       string `toml:"api_host,omitempty"`
	DashboardHost string `toml:"dashboard_host,omitempty"`
}

// ProjectConfig is the per-directory setup file.
type ProjectConfig struct {
	Setup Setup `toml:"setup"`
}

// Setup binds a directory to a backend project and environment.
type Setup struct {
	Project     string `toml:"project"`
	Environment string `toml:"environment"`
}

// LoadUserConfig reads the user config. A missing file yields an empty config.
func LoadUserConfig(path string) (*UserConfig, error) {
	config := &UserConfig{Scoped: make(map[string]ScopeConfig)}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if config.Scoped == nil {
		config.Scoped = make(map[string]ScopeConfig)
	}

	return config, nil
}

// SaveUserConfig writes the user config.
func SaveUserConfig(path string, config *UserConfig) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}

// Scope returns the entry for dir, the nearest configured parent of dir, or
// the global scope, in that order. The returned string is the matched scope.
func (uc *UserConfig) Scope(dir string) (string, ScopeConfig) {
	current := filepath.Clean(dir)
	for {
		if scope, ok := uc.Scoped[current]; ok {
			return current, scope
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	if scope, ok := uc.Scoped[GlobalScope]; ok {
		return GlobalScope, scope
	}
	return GlobalScope, ScopeConfig{}
}

// SetScope stores the entry for scope.
func (uc *UserConfig) SetScope(scope string, config ScopeConfig) {
	if uc.Scoped == nil {
		uc.Scoped = make(map[string]ScopeConfig)
	}
	uc.Scoped[scope] = config
}

// ClearToken removes the token of scope and reports whether one was stored.
func (uc *UserConfig) ClearToken(scope string) bool {
	config, ok := uc.Scoped[scope]
	if !ok || config.Token == "" {
		return false
	}
	config.Token = ""
	uc.Scoped[scope] = config
	return true
}

// LoadProjectConfig reads the setup file in dir.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	config := &ProjectConfig{}
	path := filepath.Join(dir, ProjectConfigFileName)

	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	return config, nil
}

// SaveProjectConfig writes the setup file in dir.
func SaveProjectConfig(dir string, config *ProjectConfig) error {
	if err := SaveTOML(filepath.Join(dir, ProjectConfigFileName), config); err != nil {
		return fmt.Errorf("failed to save project config: %w", err)
	}
	return nil
}
