package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" // #nosec G501 -- EVP_BytesToKey is defined over MD5; the wire format requires it
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PolarWolf314/secretsync/internal/machine"
)

// saltedPrefix marks OpenSSL-style passphrase ciphertexts.
const saltedPrefix = "Salted__"

const (
	saltSize = 8
	keySize  = 32
)

// EncryptWithPassphrase encrypts plaintext with AES-256-CBC using a key and IV
// derived from passphrase and a random salt. The result is the base64 of
// "Salted__" || salt || ciphertext, which is what OpenSSL and CryptoJS emit.
func EncryptWithPassphrase(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, iv := deriveKeyAndIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, len(saltedPrefix)+saltSize+len(ciphertext))
	out = append(out, saltedPrefix...)
	out = append(out, salt...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptWithPassphrase reverses EncryptWithPassphrase. It never fails loudly:
// a wrong passphrase, a truncated or non-base64 input, or plaintext that is not
// valid UTF-8 all yield ("", false) so callers can treat them as a key mismatch.
func DecryptWithPassphrase(ciphertext, passphrase string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", false
	}

	header := len(saltedPrefix) + saltSize
	if len(raw) < header+aes.BlockSize || string(raw[:len(saltedPrefix)]) != saltedPrefix {
		return "", false
	}

	salt := raw[len(saltedPrefix):header]
	body := raw[header:]
	if len(body)%aes.BlockSize != 0 {
		return "", false
	}

	key, iv := deriveKeyAndIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", false
	}

	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, body)

	plaintext, ok := pkcs7Unpad(plaintext, aes.BlockSize)
	if !ok || !utf8.Valid(plaintext) {
		return "", false
	}

	return string(plaintext), true
}

// FingerprintFunc returns the passphrase that binds a value to one device.
type FingerprintFunc func() (string, error)

// EncryptForDevice encrypts plaintext with the device fingerprint as passphrase,
// so only this device can decrypt the result. A nil fingerprint selects
// machine.Fingerprint.
func EncryptForDevice(plaintext string, fingerprint FingerprintFunc) (string, error) {
	passphrase, err := devicePassphrase(fingerprint)
	if err != nil {
		return "", err
	}
	return EncryptWithPassphrase(plaintext, passphrase)
}

// DecryptForDevice decrypts a value produced by EncryptForDevice on this device.
// The error is only set when the fingerprint itself is unavailable.
func DecryptForDevice(ciphertext string, fingerprint FingerprintFunc) (string, bool, error) {
	passphrase, err := devicePassphrase(fingerprint)
	if err != nil {
		return "", false, err
	}
	plaintext, ok := DecryptWithPassphrase(ciphertext, passphrase)
	return plaintext, ok, nil
}

func devicePassphrase(fingerprint FingerprintFunc) (string, error) {
	if fingerprint == nil {
		fingerprint = machine.Fingerprint
	}
	return fingerprint()
}

// deriveKeyAndIV implements OpenSSL's EVP_BytesToKey with MD5 and one iteration.
func deriveKeyAndIV(passphrase, salt []byte) ([]byte, []byte) {
	var derived, prev []byte
	for len(derived) < keySize+aes.BlockSize {
		h := md5.New() // #nosec G401
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keySize], derived[keySize : keySize+aes.BlockSize]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
