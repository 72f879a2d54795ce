package secrets

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
)

// AppKey is the application-wide symmetric key shared by every client build.
// Release builds replace it with -ldflags "-X github.com/PolarWolf314/secretsync/internal/secrets.AppKey=...".
var AppKey = "secretsync-development-app-key"

// Codec seals secret fields for the backend and opens the ones it returns.
//
// Outbound fields are AES-encrypted with AppKey and the resulting ciphertext
// is RSA-encrypted with the backend's public key. Inbound fields arrive as AES
// ciphertext under the per-session key recovered during authentication.
type Codec struct {
	AppKey     string
	BackendKey *rsa.PublicKey
	SessionKey string
}

// NewCodec returns a Codec using the build-embedded AppKey.
func NewCodec(backendKey *rsa.PublicKey, sessionKey string) *Codec {
	return &Codec{
		AppKey:     AppKey,
		BackendKey: backendKey,
		SessionKey: sessionKey,
	}
}

// Seal produces the wire value for one plaintext field.
func (c *Codec) Seal(plaintext string) (string, error) {
	if c.BackendKey == nil {
		return "", fmt.Errorf("%w: no backend public key in session", kerrors.ErrEncryptionFailed)
	}

	inner, err := EncryptWithPassphrase(plaintext, c.AppKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrEncryptionFailed, err)
	}

	outer, err := EncryptWithPublicKey([]byte(inner), c.BackendKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrEncryptionFailed, err)
	}

	return base64.StdEncoding.EncodeToString(outer), nil
}

// Open decrypts one inbound field with the session key. A false result means
// the value was not encrypted for this session.
func (c *Codec) Open(wire string) (string, bool) {
	if c.SessionKey == "" {
		return "", false
	}
	return DecryptWithPassphrase(wire, c.SessionKey)
}
