package workflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/secretsync/internal/audit"
	"github.com/PolarWolf314/secretsync/internal/auth"
	"github.com/PolarWolf314/secretsync/internal/configs"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/remote"
	"github.com/PolarWolf314/secretsync/internal/utils"
)

// LoginOptions configures the login workflow.
type LoginOptions struct {
	// Scope is the directory the login applies to. Empty means the global scope.
	Scope string

	// Token skips the device flow and stores this token after verifying it.
	Token string

	// Force replaces a token already stored for the scope.
	Force bool

	// Notify is called with the dashboard URL where the auth code is confirmed.
	Notify func(code auth.AuthCode, url string)
}

// LoginResult contains the outcome of a login.
type LoginResult struct {
	Scope        string
	ServiceToken bool
	Sealed       bool
}

// Login obtains a device token and stores it for the scope. User tokens are
// sealed with the machine fingerprint; service tokens are stored in clear.
//
// Returns ErrAlreadyLoggedIn if the scope already holds a token and Force is not set.
// Returns ErrLoginTimeout if the auth code is not confirmed in time.
func Login(ctx context.Context, e *Env, opts LoginOptions) (*LoginResult, error) {
	scope := configs.GlobalScope
	if opts.Scope != "" {
		abs, err := filepath.Abs(opts.Scope)
		if err != nil {
			return nil, err
		}
		scope = abs
	}

	userConfig, err := configs.LoadUserConfig(e.Runtime.Settings.UserConfigPath)
	if err != nil {
		return nil, err
	}
	existing := userConfig.Scoped[scope]
	if existing.Token != "" && !opts.Force {
		return nil, kerrors.ErrAlreadyLoggedIn
	}

	ctx, requestID := withRequestID(ctx)

	token := strings.TrimSpace(opts.Token)
	if token != "" {
		if _, err := e.authenticator().Authenticate(ctx, token); err != nil {
			return nil, err
		}
	} else {
		fingerprint, err := e.Fingerprint()
		if err != nil {
			return nil, err
		}
		host := utils.CurrentHost()
		device := auth.DeviceInfo{Fingerprint: fingerprint, OS: host.OS, Hostname: host.Hostname, Arch: host.Arch}

		token, err = e.authenticator().Login(ctx, device, func(code auth.AuthCode) {
			if opts.Notify != nil {
				opts.Notify(code, dashboardURL(e.Runtime.DashboardHost, code.AuthCode))
			}
		})
		if err != nil {
			return nil, err
		}
	}

	result := &LoginResult{Scope: scope, ServiceToken: auth.IsServiceToken(token)}
	stored := token
	if !result.ServiceToken {
		fingerprint, err := e.Fingerprint()
		if err != nil {
			return nil, err
		}
		if stored, err = configs.SealToken(token, fingerprint); err != nil {
			return nil, fmt.Errorf("sealing device token: %w", err)
		}
		result.Sealed = true
	}

	userConfig.SetScope(scope, configs.ScopeConfig{
		Token:         stored,
		APIHost:       e.Runtime.APIHost,
		DashboardHost: e.Runtime.DashboardHost,
	})
	if err := configs.SaveUserConfig(e.Runtime.Settings.UserConfigPath, userConfig); err != nil {
		return nil, err
	}

	e.Audit.Log(audit.Entry{Operation: audit.OpLogin, Scope: scope, RequestID: requestID})
	return result, nil
}

func dashboardURL(host, authCode string) string {
	return strings.TrimSuffix(host, "/") + "/auth/cli?authCode=" + authCode
}

// LogoutResult contains the outcome of a logout.
type LogoutResult struct {
	Scope   string
	Revoked bool
	Message string
}

// Logout revokes the stored device token and removes it from the config.
// A failed revocation is logged and does not keep the token stored.
func Logout(ctx context.Context, e *Env) (*LogoutResult, error) {
	userConfig, err := configs.LoadUserConfig(e.Runtime.Settings.UserConfigPath)
	if err != nil {
		return nil, err
	}

	if err := e.Runtime.RequireToken(); err != nil {
		return nil, err
	}
	scope := e.Runtime.Scope

	ctx, requestID := withRequestID(ctx)
	result := &LogoutResult{Scope: scope}

	revoked, err := e.authenticator().Revoke(ctx, e.Runtime.Token)
	if err != nil {
		e.Log.WarnfAlways("Could not revoke device token: %v", err)
	} else {
		result.Revoked = revoked.Status
		result.Message = revoked.Message
	}

	if userConfig.ClearToken(scope) {
		if err := configs.SaveUserConfig(e.Runtime.Settings.UserConfigPath, userConfig); err != nil {
			return nil, err
		}
	}

	e.Audit.Log(audit.Entry{Operation: audit.OpLogout, Scope: scope, RequestID: requestID})
	return result, nil
}

// Projects lists the projects the logged-in user is a member of.
func Projects(ctx context.Context, e *Env) ([]remote.Project, error) {
	ctx, _ = withRequestID(ctx)

	session, err := e.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return remote.NewStore(e.client(), session, remote.WithLogger(e.Log)).Projects(ctx)
}

// SetupOptions configures the setup workflow.
type SetupOptions struct {
	Project     string
	Environment string

	// Dir receives the project config file.
	Dir string
}

// SetupResult contains the outcome of a setup.
type SetupResult struct {
	Environment remote.EnvironmentRef
	ConfigPath  string
}

// Setup verifies that the project environment exists and is accessible, then
// binds Dir to it.
func Setup(ctx context.Context, e *Env, opts SetupOptions) (*SetupResult, error) {
	if strings.TrimSpace(opts.Project) == "" || strings.TrimSpace(opts.Environment) == "" {
		return nil, fmt.Errorf("%w: project and environment are required", kerrors.ErrValidation)
	}

	ctx, requestID := withRequestID(ctx)

	session, err := e.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	store := remote.NewStore(e.client(), session, remote.WithLogger(e.Log))
	env, err := store.ResolveEnvironment(ctx, opts.Project, opts.Environment)
	if err != nil {
		return nil, err
	}

	config := &configs.ProjectConfig{Setup: configs.Setup{Project: env.Project, Environment: env.Name}}
	if err := configs.SaveProjectConfig(opts.Dir, config); err != nil {
		return nil, err
	}

	e.Audit.Log(audit.Entry{
		Operation:   audit.OpSetup,
		User:        session.User.Email,
		Project:     env.Project,
		Environment: env.Name,
		RequestID:   requestID,
	})

	return &SetupResult{
		Environment: env,
		ConfigPath:  filepath.Join(opts.Dir, configs.ProjectConfigFileName),
	}, nil
}
