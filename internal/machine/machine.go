// Package machine derives a stable per-device fingerprint.
//
// The fingerprint is the SHA-256 hex digest of the operating system's machine
// identifier (/etc/machine-id, IOPlatformUUID, or the MachineGuid registry
// value). It is computed on demand and never persisted here.
package machine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"

	"github.com/denisbrodbeck/machineid"
)

// idSource reads the raw platform identifier. Tests replace it.
var idSource = machineid.ID

// Fingerprint returns the platform-stable identifier of the current device.
// It fails with ErrFingerprintUnavailable rather than falling back to a weaker value.
func Fingerprint() (string, error) {
	id, err := idSource()
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrFingerprintUnavailable, err)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", kerrors.ErrFingerprintUnavailable
	}

	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:]), nil
}
