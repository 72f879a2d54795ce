package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/allisson/go-env"
)

const (
	// DefaultAPIHost is the GraphQL endpoint used when none is configured.
	DefaultAPIHost = "https://api.secretsync.dev/graphql"

	// DefaultDashboardHost is where device logins are confirmed.
	DefaultDashboardHost = "https://app.secretsync.dev"

	// DefaultTimeoutSeconds bounds every backend request.
	DefaultTimeoutSeconds = 30
)

// Runtime is the effective configuration of one CLI invocation: the stored
// user and project config with environment overrides applied.
type Runtime struct {
	Settings *Settings

	// Scope is the user config scope the login state came from.
	Scope string

	Token         string
	APIHost       string
	DashboardHost string

	// ProjectRoot is empty when the directory has not been set up.
	ProjectRoot string
	Project     string
	Environment string

	Timeout time.Duration
	RSABits int
}

// Resolve builds the Runtime for cwd. fingerprint is only called when a
// sealed token has to be opened.
func Resolve(settings *Settings, cwd string, fingerprint func() (string, error)) (*Runtime, error) {
	userConfig, err := LoadUserConfig(settings.UserConfigPath)
	if err != nil {
		return nil, err
	}
	scopeName, scope := userConfig.Scope(cwd)

	rt := &Runtime{
		Settings:      settings,
		Scope:         scopeName,
		APIHost:       env.GetString("SECRETSYNC_API_HOST", orDefault(scope.APIHost, DefaultAPIHost)),
		DashboardHost: env.GetString("SECRETSYNC_DASHBOARD_HOST", orDefault(scope.DashboardHost, DefaultDashboardHost)),
		Timeout:       env.GetDuration("SECRETSYNC_TIMEOUT_SECONDS", DefaultTimeoutSeconds, time.Second),
		RSABits:       env.GetInt("SECRETSYNC_RSA_BITS", secrets.DefaultRSABits),
	}

	if token := strings.TrimSpace(env.GetString("SECRETSYNC_TOKEN", "")); token != "" {
		rt.Token = token
	} else if scope.Token != "" {
		fp := ""
		if IsSealed(scope.Token) {
			if fp, err = fingerprint(); err != nil {
				return nil, err
			}
		}
		if rt.Token, err = OpenToken(scope.Token, fp); err != nil {
			return nil, err
		}
	}

	root, err := FindProjectRoot(cwd)
	switch {
	case err == nil:
		project, err := LoadProjectConfig(root)
		if err != nil {
			return nil, err
		}
		rt.ProjectRoot = root
		rt.Project = project.Setup.Project
		rt.Environment = project.Setup.Environment
	case !errors.Is(err, kerrors.ErrProjectNotConfigured):
		return nil, fmt.Errorf("failed to locate project config: %w", err)
	}

	rt.Project = env.GetString("SECRETSYNC_PROJECT", rt.Project)
	rt.Environment = env.GetString("SECRETSYNC_ENVIRONMENT", rt.Environment)

	return rt, nil
}

// RequireToken returns ErrNotLoggedIn when no device token is available.
func (rt *Runtime) RequireToken() error {
	if rt.Token == "" {
		return kerrors.ErrNotLoggedIn
	}
	return nil
}

// RequireProject returns ErrProjectNotConfigured when no project and
// environment were set up or supplied through the environment.
func (rt *Runtime) RequireProject() error {
	if rt.Project == "" || rt.Environment == "" {
		return kerrors.ErrProjectNotConfigured
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
