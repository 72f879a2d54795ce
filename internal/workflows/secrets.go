package workflows

import (
	"context"
	"fmt"
	"sort"

	"github.com/PolarWolf314/secretsync/internal/audit"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/remote"
	"github.com/PolarWolf314/secretsync/internal/secrets"
)

// PullOptions configures the pull workflow.
type PullOptions struct {
	// SkipUndecryptable drops secrets that were not encrypted for this
	// session instead of failing.
	SkipUndecryptable bool

	// EncryptForDevice re-encrypts every value with the machine fingerprint,
	// so the result can only be read back on this device.
	EncryptForDevice bool
}

// PullResult contains the decrypted secrets of the configured environment.
type PullResult struct {
	Environment remote.EnvironmentRef
	Secrets     []secrets.Secret
	Skipped     []string
}

// Pull fetches and decrypts every secret of the configured environment.
//
// Returns ErrNotLoggedIn or ErrProjectNotConfigured when prerequisites are missing.
// Returns ErrPermissionDenied if the user is not a member of the project.
// Returns ErrDecryptionFailed on an undecryptable secret unless SkipUndecryptable is set.
func Pull(ctx context.Context, e *Env, opts PullOptions) (*PullResult, error) {
	ctx, _ = withRequestID(ctx)

	store, env, _, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}

	fetched, err := store.Fetch(ctx, env, remote.FetchOptions{SkipUndecryptable: opts.SkipUndecryptable})
	if err != nil {
		return nil, err
	}

	if opts.EncryptForDevice {
		for i := range fetched.Secrets {
			sealed, err := secrets.EncryptForDevice(fetched.Secrets[i].Value, e.Fingerprint)
			if err != nil {
				return nil, fmt.Errorf("encrypting %s for this device: %w", fetched.Secrets[i].Key, err)
			}
			fetched.Secrets[i].Value = sealed
		}
	}

	return &PullResult{Environment: env, Secrets: fetched.Secrets, Skipped: fetched.Skipped}, nil
}

// PushOptions configures the push workflow.
type PushOptions struct {
	// Secrets maps secret names to values. Names are normalized.
	Secrets map[string]string

	// DryRun reports what would change without uploading.
	DryRun bool

	// DecryptForDevice treats every value as the output of a device-encrypted
	// pull and decrypts it with the machine fingerprint first.
	DecryptForDevice bool
}

// PushResult contains the outcome of a push.
type PushResult struct {
	Environment remote.EnvironmentRef
	Added       []string
	Updated     []string
	Unchanged   []string
	RequestID   string
	DryRun      bool
}

// Push merges the given secrets into the configured environment and uploads
// the reconciled set.
//
// Returns ErrNothingToPush if no secrets were given.
// Returns ErrValidation if a secret name is malformed.
// Returns ErrEncryptedElsewhere if a device-encrypted value came from another machine.
// Returns ErrUploadFailed if the backend rejects the batch.
func Push(ctx context.Context, e *Env, opts PushOptions) (*PushResult, error) {
	if len(opts.Secrets) == 0 {
		return nil, kerrors.ErrNothingToPush
	}

	values := opts.Secrets
	if opts.DecryptForDevice {
		var err error
		if values, err = openForDevice(opts.Secrets, e.Fingerprint); err != nil {
			return nil, err
		}
	}

	for key := range values {
		if err := (secrets.Secret{Key: secrets.NormalizeKey(key)}).Validate(); err != nil {
			return nil, err
		}
	}

	ctx, requestID := withRequestID(ctx)

	store, env, session, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := store.Fetch(ctx, env, remote.FetchOptions{})
	if err != nil {
		return nil, err
	}

	merged := secrets.Merge(existing.Secrets, values, nil, secrets.ModeUpsert)
	result := &PushResult{Environment: env, RequestID: requestID, DryRun: opts.DryRun}
	result.Added, result.Updated, result.Unchanged = classifyChanges(existing.Secrets, values)

	if opts.DryRun {
		return result, nil
	}

	if err := store.Upload(ctx, env, merged); err != nil {
		return nil, err
	}

	e.Audit.Log(audit.Entry{
		Operation:   audit.OpPush,
		User:        session.User.Email,
		Project:     env.Project,
		Environment: env.Name,
		KeysCount:   len(result.Added) + len(result.Updated),
		RequestID:   requestID,
	})

	return result, nil
}

// openForDevice decrypts values written by a device-encrypted pull.
func openForDevice(sealed map[string]string, fingerprint secrets.FingerprintFunc) (map[string]string, error) {
	opened := make(map[string]string, len(sealed))
	for key, value := range sealed {
		plaintext, ok, err := secrets.DecryptForDevice(value, fingerprint)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrEncryptedElsewhere, key)
		}
		opened[key] = plaintext
	}
	return opened, nil
}

// classifyChanges sorts the intended keys into added, updated and unchanged
// relative to the existing set.
func classifyChanges(existing []secrets.Secret, intended map[string]string) (added, updated, unchanged []string) {
	current := make(map[string]string, len(existing))
	for _, s := range existing {
		current[secrets.NormalizeKey(s.Key)] = s.Value
	}

	rawKeys := make([]string, 0, len(intended))
	for raw := range intended {
		rawKeys = append(rawKeys, raw)
	}
	sort.Strings(rawKeys)

	// Later raw keys override earlier ones that normalize the same, as in Merge.
	final := make(map[string]string, len(intended))
	for _, raw := range rawKeys {
		final[secrets.NormalizeKey(raw)] = intended[raw]
	}

	for key, value := range final {
		old, ok := current[key]
		switch {
		case !ok:
			added = append(added, key)
		case old != value:
			updated = append(updated, key)
		default:
			unchanged = append(unchanged, key)
		}
	}

	sort.Strings(added)
	sort.Strings(updated)
	sort.Strings(unchanged)
	return added, updated, unchanged
}

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	Keys   []string
	DryRun bool
}

// DeleteResult contains the outcome of a delete.
type DeleteResult struct {
	Environment remote.EnvironmentRef
	Deleted     []string
	Missing     []string
	RequestID   string
	DryRun      bool
}

// Delete removes secrets from the configured environment. Deletions are sent
// as explicit DELETE records. Keys that do not exist are reported in Missing.
func Delete(ctx context.Context, e *Env, opts DeleteOptions) (*DeleteResult, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("%w: no secret names given", kerrors.ErrValidation)
	}

	ctx, requestID := withRequestID(ctx)

	store, env, session, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := store.Fetch(ctx, env, remote.FetchOptions{})
	if err != nil {
		return nil, err
	}

	merged := secrets.Merge(existing.Secrets, nil, opts.Keys, secrets.ModeDelete)
	result := &DeleteResult{Environment: env, Missing: merged.Missing, RequestID: requestID, DryRun: opts.DryRun}
	for _, s := range merged.Deletions {
		result.Deleted = append(result.Deleted, s.Key)
	}

	if opts.DryRun || len(merged.Deletions) == 0 {
		return result, nil
	}

	if err := store.Upload(ctx, env, merged); err != nil {
		return nil, err
	}

	e.Audit.Log(audit.Entry{
		Operation:    audit.OpDelete,
		User:         session.User.Email,
		Project:      env.Project,
		Environment:  env.Name,
		Keys:         result.Deleted,
		DeletedCount: len(result.Deleted),
		RequestID:    requestID,
	})

	return result, nil
}

// MergeRequestOptions configures the merge-request workflow.
type MergeRequestOptions struct {
	Key     string
	Value   string
	Comment string
}

// MergeRequestResult contains the outcome of a merge request.
type MergeRequestResult struct {
	Environment remote.EnvironmentRef
	Key         string
	RequestID   string
}

// MergeRequest proposes a secret change for review by a project admin.
func MergeRequest(ctx context.Context, e *Env, opts MergeRequestOptions) (*MergeRequestResult, error) {
	secret := secrets.Secret{Key: opts.Key, Value: opts.Value}.Normalized()
	if err := secret.Validate(); err != nil {
		return nil, err
	}

	ctx, requestID := withRequestID(ctx)

	store, env, session, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := store.AddMergeRequest(ctx, env, secret, opts.Comment); err != nil {
		return nil, err
	}

	e.Audit.Log(audit.Entry{
		Operation:   audit.OpMergeRequest,
		User:        session.User.Email,
		Project:     env.Project,
		Environment: env.Name,
		Keys:        []string{secret.Key},
		KeysCount:   1,
		RequestID:   requestID,
	})

	return &MergeRequestResult{Environment: env, Key: secret.Key, RequestID: requestID}, nil
}
