package workflows

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PolarWolf314/secretsync/internal/audit"
	"github.com/PolarWolf314/secretsync/internal/auth"
	"github.com/PolarWolf314/secretsync/internal/configs"
	"github.com/PolarWolf314/secretsync/internal/graphql"
	logger "github.com/PolarWolf314/secretsync/internal/logging"
	"github.com/PolarWolf314/secretsync/internal/machine"
	"github.com/PolarWolf314/secretsync/internal/remote"

	"github.com/google/uuid"
)

// Env is the explicit context every workflow runs in: the resolved
// configuration plus the collaborators that would otherwise be globals.
type Env struct {
	Runtime     *configs.Runtime
	Log         logger.Logger
	Audit       *audit.Logger
	Fingerprint func() (string, error)

	// HTTPClient overrides the transport used for backend calls.
	HTTPClient *http.Client
}

// NewEnv resolves configuration for cwd from the default locations.
func NewEnv(cwd string, log logger.Logger) (*Env, error) {
	settings, err := configs.DefaultSettings()
	if err != nil {
		return nil, err
	}

	rt, err := configs.Resolve(settings, cwd, machine.Fingerprint)
	if err != nil {
		return nil, err
	}

	log.Debugf("Using API host %s (scope %s)", rt.APIHost, rt.Scope)

	return &Env{
		Runtime:     rt,
		Log:         log,
		Audit:       audit.New(settings.AuditLogPath),
		Fingerprint: machine.Fingerprint,
	}, nil
}

func (e *Env) client() *graphql.Client {
	opts := []graphql.Option{
		graphql.WithTimeout(e.Runtime.Timeout),
		graphql.WithLogger(e.Log),
	}
	if e.HTTPClient != nil {
		opts = append(opts, graphql.WithHTTPClient(e.HTTPClient))
	}
	return graphql.New(e.Runtime.APIHost, opts...)
}

func (e *Env) authenticator(opts ...auth.Option) *auth.Authenticator {
	opts = append([]auth.Option{auth.WithRSABits(e.Runtime.RSABits), auth.WithLogger(e.Log)}, opts...)
	return auth.NewAuthenticator(e.client(), opts...)
}

// authenticate opens a session with the configured device token.
func (e *Env) authenticate(ctx context.Context) (*auth.Session, error) {
	if err := e.Runtime.RequireToken(); err != nil {
		return nil, err
	}
	return e.authenticator().Authenticate(ctx, e.Runtime.Token)
}

// openStore authenticates and resolves the configured project environment.
func (e *Env) openStore(ctx context.Context) (*remote.Store, remote.EnvironmentRef, *auth.Session, error) {
	if err := e.Runtime.RequireToken(); err != nil {
		return nil, remote.EnvironmentRef{}, nil, err
	}
	if err := e.Runtime.RequireProject(); err != nil {
		return nil, remote.EnvironmentRef{}, nil, err
	}

	session, err := e.authenticate(ctx)
	if err != nil {
		return nil, remote.EnvironmentRef{}, nil, err
	}

	store := remote.NewStore(e.client(), session, remote.WithLogger(e.Log))
	env, err := store.ResolveEnvironment(ctx, e.Runtime.Project, e.Runtime.Environment)
	if err != nil {
		return nil, remote.EnvironmentRef{}, nil, fmt.Errorf("resolving %s/%s: %w", e.Runtime.Project, e.Runtime.Environment, err)
	}

	return store, env, session, nil
}

// withRequestID tags every backend call of one workflow with the same id.
func withRequestID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return graphql.ContextWithRequestID(ctx, id), id
}
