package remote

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/secretsync/internal/auth"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"
	logger "github.com/PolarWolf314/secretsync/internal/logging"
	"github.com/PolarWolf314/secretsync/internal/secrets"
)

// DefaultConcurrency bounds parallel per-secret encryption and decryption.
const DefaultConcurrency = 8

// Environment is one environment of a project in the backend catalog.
type Environment struct {
	ID   string `json:"id"`
	Name string `json:"title"`
}

// Project is a backend catalog entry.
type Project struct {
	ID           string
	Name         string
	Member       bool
	Environments []Environment
}

// EnvironmentRef identifies the environment an operation targets. It is
// resolved once per operation and never cached.
type EnvironmentRef struct {
	ID      string
	Name    string
	Project string
}

func (e EnvironmentRef) String() string {
	return e.Project + "/" + e.Name
}

// Store reads and writes the secrets of project environments for one session.
type Store struct {
	client      *graphql.Client
	session     *auth.Session
	codec       *secrets.Codec
	concurrency int
	log         logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency bounds parallel per-secret work. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore binds a store to an authenticated session.
func NewStore(client *graphql.Client, session *auth.Session, opts ...Option) *Store {
	s := &Store{
		client:      client.WithBearer(session.AccessToken),
		session:     session,
		codec:       session.Codec(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func permissionDenied(env EnvironmentRef) error {
	return fmt.Errorf("%w: you no longer have access to environment %q of project %q, please contact an admin",
		kerrors.ErrPermissionDenied, env.Name, env.Project)
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
