package remote

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"golang.org/x/sync/errgroup"
)

const addSecretsMutation = `mutation AddSecrets($addSecretsInput: [AddSecretInput!]!) {
  addSecrets(addSecretsInput: $addSecretsInput) {
    id
    key
  }
}`

const addMergeRequestMutation = `mutation AddMergeRequest($environmentId: String!, $comment: String, $addSecretsInput: [BaseAddSecretInput!]) {
  addMergeRequest(addMergeRequestInput: { environmentId: $environmentId, comment: $comment, secrets: $addSecretsInput }) {
    comment
  }
}`

// addSecretInput is one sealed record of an addSecrets batch.
type addSecretInput struct {
	ID            string       `json:"id,omitempty"`
	Key           string       `json:"key"`
	Value         string       `json:"value"`
	Comment       string       `json:"comment,omitempty"`
	EnvironmentID string       `json:"environmentId,omitempty"`
	Action        secrets.Mode `json:"action,omitempty"`
}

// Upload pushes a reconciled secret set to env in a single addSecrets
// mutation. Secrets are sent as UPSERT records and Deletions as DELETE
// records. Any failure is reported as ErrUploadFailed and nothing is retried.
func (s *Store) Upload(ctx context.Context, env EnvironmentRef, result secrets.MergeResult) error {
	type pending struct {
		secret secrets.Secret
		action secrets.Mode
	}

	batch := make([]pending, 0, len(result.Secrets)+len(result.Deletions))
	for _, secret := range result.Secrets {
		batch = append(batch, pending{secret: secret.Normalized(), action: secrets.ModeUpsert})
	}
	for _, secret := range result.Deletions {
		batch = append(batch, pending{secret: secret.Normalized(), action: secrets.ModeDelete})
	}

	if err := secrets.ValidateAll(result.Secrets); err != nil {
		return err
	}
	if err := secrets.ValidateAll(result.Deletions); err != nil {
		return err
	}
	if len(batch) == 0 {
		s.log.Debugf("Nothing to upload to %s", env)
		return nil
	}

	records := make([]addSecretInput, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, err := s.seal(batch[i].secret, env)
			if err != nil {
				return err
			}
			record.Action = batch[i].action
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrUploadFailed, err)
	}

	s.log.Infof("Uploading %d secrets to %s (%d deletions)", len(records), env, len(result.Deletions))

	err := s.client.Do(ctx, addSecretsMutation, map[string]any{"addSecretsInput": records}, nil)
	if err != nil {
		if graphql.IsUnauthorized(err) {
			err = permissionDenied(env)
		}
		return fmt.Errorf("%w: %w", kerrors.ErrUploadFailed, err)
	}
	return nil
}

// AddMergeRequest proposes a single secret change for review instead of
// writing it directly.
func (s *Store) AddMergeRequest(ctx context.Context, env EnvironmentRef, secret secrets.Secret, comment string) error {
	secret = secret.Normalized()
	if err := secret.Validate(); err != nil {
		return err
	}

	record, err := s.seal(secret, env)
	if err != nil {
		return err
	}
	record.EnvironmentID = ""

	err = s.client.Do(ctx, addMergeRequestMutation, map[string]any{
		"environmentId":   env.ID,
		"comment":         comment,
		"addSecretsInput": []addSecretInput{record},
	}, nil)
	if err != nil {
		if graphql.IsUnauthorized(err) {
			return permissionDenied(env)
		}
		return fmt.Errorf("failed to create merge request for %s: %w", env, err)
	}
	return nil
}

// seal encrypts every field of secret for the backend.
func (s *Store) seal(secret secrets.Secret, env EnvironmentRef) (addSecretInput, error) {
	key, err := s.codec.Seal(secret.Key)
	if err != nil {
		return addSecretInput{}, err
	}
	value, err := s.codec.Seal(secret.Value)
	if err != nil {
		return addSecretInput{}, err
	}

	record := addSecretInput{
		ID:            secret.ID,
		Key:           key,
		Value:         value,
		EnvironmentID: env.ID,
	}
	if secret.Comment != "" {
		if record.Comment, err = s.codec.Seal(secret.Comment); err != nil {
			return addSecretInput{}, err
		}
	}
	return record, nil
}
