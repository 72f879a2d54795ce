package secrets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" // #nosec G505 -- OAEP label hash shared with the backend's RSA library
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
)

const (
	// DefaultRSABits is the modulus size used for session key pairs.
	DefaultRSABits = 2048

	// MinRSABits is the smallest modulus accepted. crypto/rsa refuses
	// anything shorter, so legacy 512-bit session keys are not supported.
	MinRSABits = 1024
)

// KeyPair is an ephemeral RSA key pair scoped to one authentication exchange.
type KeyPair struct {
	PublicKey  *rsa.PublicKey
	PrivateKey *rsa.PrivateKey
}

// GenerateKeyPair creates a fresh RSA key pair. A zero bits value selects DefaultRSABits.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits == 0 {
		bits = DefaultRSABits
	}
	if bits < MinRSABits {
		return nil, fmt.Errorf("RSA modulus of %d bits is below the minimum of %d", bits, MinRSABits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return &KeyPair{PublicKey: &privateKey.PublicKey, PrivateKey: privateKey}, nil
}

// PublicKeyPEM encodes the public key as a PKIX "PUBLIC KEY" block.
func (kp *KeyPair) PublicKeyPEM() (string, error) {
	pubASN1, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubASN1})), nil
}

// DecryptString decodes a base64 RSA ciphertext and decrypts it with the
// pair's private key. Any failure returns "".
func (kp *KeyPair) DecryptString(ciphertext string) string {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ""
	}
	plaintext, err := DecryptWithPrivateKey(raw, kp.PrivateKey)
	if err != nil {
		return ""
	}
	return string(plaintext)
}

// ParsePublicKeyPEM loads an RSA public key from a PKIX or PKCS#1 PEM block.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", kerrors.ErrInvalidPublicKey)
	}

	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key", kerrors.ErrInvalidPublicKey)
		}
		return rsaPub, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidPublicKey, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", kerrors.ErrInvalidPublicKey, block.Type)
	}
}

// EncryptWithPublicKey encrypts plaintext with RSA-OAEP (SHA-1). Payloads that
// exceed one block are split and the ciphertext blocks concatenated.
func EncryptWithPublicKey(plaintext []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, kerrors.ErrInvalidPublicKey
	}

	chunkSize := publicKey.Size() - 2*sha1.Size - 2
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: modulus too small for OAEP", kerrors.ErrInvalidPublicKey)
	}

	var out []byte
	for offset := 0; offset == 0 || offset < len(plaintext); offset += chunkSize {
		end := min(offset+chunkSize, len(plaintext))
		block, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, publicKey, plaintext[offset:end], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt with public key: %w", err)
		}
		out = append(out, block...)
	}

	return out, nil
}

// DecryptWithPrivateKey reverses EncryptWithPublicKey.
func DecryptWithPrivateKey(ciphertext []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, kerrors.ErrInvalidPrivateKey
	}

	blockSize := privateKey.Size()
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of %d", len(ciphertext), blockSize)
	}

	var out []byte
	for offset := 0; offset < len(ciphertext); offset += blockSize {
		block, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, privateKey, ciphertext[offset:offset+blockSize], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt with private key: %w", err)
		}
		out = append(out, block...)
	}

	return out, nil
}

// EncryptStringWithPublicKey encrypts plaintext and returns it base64 encoded.
// Any failure returns "".
func EncryptStringWithPublicKey(plaintext string, publicKey *rsa.PublicKey) string {
	ciphertext, err := EncryptWithPublicKey([]byte(plaintext), publicKey)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(ciphertext)
}
