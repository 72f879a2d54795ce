package secrets

import (
	"fmt"
	"regexp"
	"strings"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"

	validation "github.com/jellydator/validation"
)

// secretKeyPattern rejects whitespace and '=' which cannot survive an env file.
var secretKeyPattern = regexp.MustCompile(`^[^\s=]+$`)

// Secret is one decrypted key/value pair of an environment.
type Secret struct {
	// ID is the backend identifier. Empty for secrets that were never uploaded.
	ID      string
	Key     string
	Value   string
	Comment string
}

// NormalizeKey upper-cases a secret name. Two secrets are the same secret
// when their normalized keys match.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Normalized returns a copy of s with its key normalized.
func (s Secret) Normalized() Secret {
	s.Key = NormalizeKey(s.Key)
	return s
}

// Validate reports malformed secrets as ErrValidation.
func (s Secret) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Key,
			validation.Required.Error("secret name must not be empty"),
			validation.Length(1, 256),
			validation.Match(secretKeyPattern).Error("secret name must not contain whitespace or '='"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: secret %q: %v", kerrors.ErrValidation, s.Key, err)
	}
	return nil
}

// ValidateAll validates every secret and returns the first failure.
func ValidateAll(secrets []Secret) error {
	for _, s := range secrets {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
