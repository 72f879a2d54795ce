package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"
	logger "github.com/PolarWolf314/secretsync/internal/logging"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultPollInterval is the delay between verifyAuthCode polls.
	DefaultPollInterval = 4 * time.Second

	// DefaultLoginTimeout bounds the whole device login.
	DefaultLoginTimeout = 5 * time.Minute
)

const authenticateTokenMutation = `mutation AuthenticateToken($token: String!, $frontendPublicKey: String!) {
  authenticateToken(token: $token, frontendPublicKey: $frontendPublicKey) {
    accessToken
    backendPublicKey
    user { id email name }
    authToken { id name }
  }
}`

type authenticateTokenResponse struct {
	AuthenticateToken *struct {
		AccessToken      string    `json:"accessToken"`
		BackendPublicKey string    `json:"backendPublicKey"`
		User             User      `json:"user"`
		AuthToken        TokenMeta `json:"authToken"`
	} `json:"authenticateToken"`
}

// Authenticator exchanges device tokens for sessions.
type Authenticator struct {
	client       *graphql.Client
	rsaBits      int
	pollInterval time.Duration
	loginTimeout time.Duration
	log          logger.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithRSABits sets the session key size. Zero keeps secrets.DefaultRSABits.
func WithRSABits(bits int) Option {
	return func(a *Authenticator) {
		a.rsaBits = bits
	}
}

// WithPolling overrides the device login poll interval and overall timeout.
func WithPolling(interval, timeout time.Duration) Option {
	return func(a *Authenticator) {
		if interval > 0 {
			a.pollInterval = interval
		}
		if timeout > 0 {
			a.loginTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Authenticator) {
		a.log = log
	}
}

// NewAuthenticator creates an Authenticator on top of an unauthenticated client.
func NewAuthenticator(client *graphql.Client, opts ...Option) *Authenticator {
	a := &Authenticator{
		client:       client,
		pollInterval: DefaultPollInterval,
		loginTimeout: DefaultLoginTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate opens a session for deviceToken.
//
// A fresh key pair is generated for every call. The backend returns an access
// token whose secretKey claim is encrypted with that key pair's public key; the
// decrypted value becomes the session key used to open inbound secrets.
func (a *Authenticator) Authenticate(ctx context.Context, deviceToken string) (*Session, error) {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return nil, kerrors.ErrNotLoggedIn
	}

	keyPair, err := secrets.GenerateKeyPair(a.rsaBits)
	if err != nil {
		return nil, err
	}
	frontendPublicKey, err := keyPair.PublicKeyPEM()
	if err != nil {
		return nil, err
	}

	a.log.Debugf("Generated %d-bit session key pair", keyPair.PublicKey.N.BitLen())

	var resp authenticateTokenResponse
	err = a.client.Do(ctx, authenticateTokenMutation, map[string]any{
		"token":             deviceToken,
		"frontendPublicKey": frontendPublicKey,
	}, &resp)
	if err != nil {
		return nil, authError(err)
	}

	result := resp.AuthenticateToken
	if result == nil || result.AccessToken == "" || result.BackendPublicKey == "" {
		return nil, fmt.Errorf("%w: incomplete authenticateToken response", kerrors.ErrAuthenticationFailed)
	}

	backendKey, err := secrets.ParsePublicKeyPEM([]byte(result.BackendPublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrAuthenticationFailed, err)
	}

	claims, err := ParseClaims(result.AccessToken)
	if err != nil {
		return nil, err
	}

	sessionKey := keyPair.DecryptString(claims.SecretKey)
	if sessionKey == "" {
		return nil, fmt.Errorf("%w: session key could not be recovered", kerrors.ErrAuthenticationFailed)
	}

	a.log.Infof("Authenticated as %s", result.User.Email)

	return &Session{
		DeviceToken:      deviceToken,
		AccessToken:      result.AccessToken,
		SessionKey:       sessionKey,
		BackendPublicKey: backendKey,
		KeyPair:          keyPair,
		User:             result.User,
		AuthToken:        result.AuthToken,
		Claims:           *claims,
	}, nil
}

// ParseClaims decodes the access token claims without verifying the signature.
// The backend is the only party that verifies the token.
func ParseClaims(accessToken string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed access token: %v", kerrors.ErrAuthenticationFailed, err)
	}
	if claims.SecretKey == "" {
		return nil, fmt.Errorf("%w: access token carries no session key", kerrors.ErrAuthenticationFailed)
	}
	return claims, nil
}

// authError maps a transport error from an authentication call. Timeouts and
// network failures keep their kind so callers can retry them.
func authError(err error) error {
	if errors.Is(err, kerrors.ErrTimeout) || errors.Is(err, kerrors.ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %v", kerrors.ErrAuthenticationFailed, err)
}
