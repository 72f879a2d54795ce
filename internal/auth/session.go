package auth

import (
	"crypto/rsa"
	"strings"

	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/golang-jwt/jwt/v5"
)

// serviceTokenMinLength is the length of a user device token. Anything
// shorter is a service token.
const serviceTokenMinLength = 43

// Claims are the access token claims the client reads.
type Claims struct {
	// SecretKey is the per-session AES key, RSA-encrypted with the session
	// public key and base64 encoded.
	SecretKey string `json:"secretKey"`
	Team      Ref    `json:"team"`
	TeamRole  Ref    `json:"teamRole"`
	jwt.RegisteredClaims
}

// Ref is an {id, name} pair embedded in the access token.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User identifies the account behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenMeta describes the device token that opened a session.
type TokenMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the authenticated context passed to every remote operation.
// It lives for one logical operation and is never persisted.
type Session struct {
	DeviceToken      string
	AccessToken      string
	SessionKey       string
	BackendPublicKey *rsa.PublicKey
	KeyPair          *secrets.KeyPair
	User             User
	AuthToken        TokenMeta
	Claims           Claims
}

// Codec returns the envelope codec bound to this session.
func (s *Session) Codec() *secrets.Codec {
	return secrets.NewCodec(s.BackendPublicKey, s.SessionKey)
}

// IsServiceToken reports whether the session was opened with a service token.
func (s *Session) IsServiceToken() bool {
	return IsServiceToken(s.DeviceToken)
}

// IsServiceToken reports whether token is a service token rather than a user
// device token. Service tokens are prefixed "Service" or shorter than a user token.
func IsServiceToken(token string) bool {
	return strings.HasPrefix(token, "Service") || len(token) < serviceTokenMinLength
}
