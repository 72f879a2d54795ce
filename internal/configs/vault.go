package configs

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:"
	nonceSize    = 24
	vaultInfo    = "secretsync device token vault v1"
)

func vaultKey(fingerprint string) (*[32]byte, error) {
	if fingerprint == "" {
		return nil, errors.New("empty fingerprint")
	}

	var key [32]byte
	reader := hkdf.New(sha256.New, []byte(fingerprint), nil, []byte(vaultInfo))
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive vault key: %w", err)
	}
	return &key, nil
}

// SealToken encrypts a device token so it can only be opened on the machine
// with the same fingerprint.
func SealToken(token, fingerprint string) (string, error) {
	key, err := vaultKey(fingerprint)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenToken reverses SealToken. Values without the sealed prefix are
// returned unchanged.
func OpenToken(stored, fingerprint string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", kerrors.ErrTokenSealedElsewhere
	}

	key, err := vaultKey(fingerprint)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	token, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", kerrors.ErrTokenSealedElsewhere
	}
	return string(token), nil
}

// IsSealed reports whether a stored token value is sealed.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}
