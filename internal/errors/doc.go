// Package errors provides typed error values for secretsync.
//
// Using sentinel errors allows callers to handle specific error conditions
// with errors.Is() rather than string matching.
//
// # Error Categories
//
//   - Session errors: ErrNotLoggedIn, ErrAuthenticationFailed, ErrAlreadyLoggedIn,
//     ErrLoginTimeout, ErrTokenSealedElsewhere, ErrFingerprintUnavailable
//   - Access errors: ErrPermissionDenied, ErrProjectNotFound, ErrEnvironmentNotFound,
//     ErrProjectNotConfigured
//   - Crypto errors: ErrDecryptionFailed, ErrEncryptionFailed, ErrEncryptedElsewhere,
//     ErrInvalidPublicKey, ErrInvalidPrivateKey
//   - Transport errors: ErrNetwork, ErrTimeout, ErrUploadFailed
//   - Input errors: ErrValidation, ErrNothingToPush, ErrInvalidDateFormat, ErrNoAuditLog
//
// ErrTimeout and ErrNetwork are the only kinds a caller may reasonably retry.
// Nothing in secretsync retries on its own.
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("fetching secrets for %s: %w", env.Name, kerrors.ErrPermissionDenied)
//
// Handle errors in the CLI layer:
//
//	if errors.Is(err, kerrors.ErrTimeout) {
//	    // suggest running the command again
//	}
package errors
