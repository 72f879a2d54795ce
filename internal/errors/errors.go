package errors

import "errors"

// Session errors indicate the device could not obtain a usable session.
var (
	// ErrNotLoggedIn indicates no device token is configured for this scope.
	ErrNotLoggedIn = errors.New("no device token configured, please login first")

	// ErrAuthenticationFailed indicates the backend rejected the device token
	// or the session key could not be recovered from its response.
	ErrAuthenticationFailed = errors.New("authentication failed, try again")

	// ErrAlreadyLoggedIn indicates a device token is already stored for this scope.
	ErrAlreadyLoggedIn = errors.New("already logged in, use --force to replace the stored token")

	// ErrLoginTimeout indicates the device login was not confirmed in time.
	ErrLoginTimeout = errors.New("device login was not confirmed in time")

	// ErrTokenSealedElsewhere indicates the stored device token was sealed on another machine.
	ErrTokenSealedElsewhere = errors.New("stored device token was sealed on another machine, please login again")

	// ErrFingerprintUnavailable indicates the platform could not produce a machine identifier.
	ErrFingerprintUnavailable = errors.New("machine fingerprint is unavailable")
)

// Access errors indicate the session lacks membership for a project or environment.
var (
	// ErrPermissionDenied indicates the user is not a member of the owning project.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrProjectNotFound indicates the project name did not match the catalog.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEnvironmentNotFound indicates the environment name did not match the project.
	ErrEnvironmentNotFound = errors.New("environment not found")

	// ErrProjectNotConfigured indicates no project/environment pair was set up for this directory.
	ErrProjectNotConfigured = errors.New("project has not been set up")
)

// Cryptographic errors indicate failures while sealing or opening secret fields.
var (
	// ErrDecryptionFailed indicates a secret field could not be decrypted with the session key.
	ErrDecryptionFailed = errors.New("failed to decrypt secret")

	// ErrEncryptionFailed indicates a secret field could not be sealed for the backend.
	ErrEncryptionFailed = errors.New("failed to encrypt secret")

	// ErrEncryptedElsewhere indicates a device-encrypted value was produced on another machine.
	ErrEncryptedElsewhere = errors.New("value was encrypted on another device")

	// ErrInvalidPublicKey indicates a PEM public key is malformed or not RSA.
	ErrInvalidPublicKey = errors.New("invalid or unsupported public key")

	// ErrInvalidPrivateKey indicates a PEM private key is malformed or not RSA.
	ErrInvalidPrivateKey = errors.New("invalid or unsupported private key")
)

// Transport errors indicate the backend could not be reached or answered badly.
var (
	// ErrNetwork indicates the request failed before a GraphQL response was read.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrUploadFailed indicates the secret batch was rejected as a whole.
	ErrUploadFailed = errors.New("failed to upload secrets")
)

// Input errors indicate the caller supplied malformed data.
var (
	// ErrValidation indicates a secret key or value is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNothingToPush indicates push was called without any secrets.
	ErrNothingToPush = errors.New("no secrets given to push")

	// ErrInvalidDateFormat indicates a date filter was not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrNoAuditLog indicates the audit log does not exist yet.
	ErrNoAuditLog = errors.New("no audit log found")
)
