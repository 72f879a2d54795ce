package remote

import (
	"context"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"golang.org/x/sync/errgroup"
)

const generalSecretsQuery = `query GeneralSecrets($environmentId: String!) {
  generalSecrets(filterInput: { environmentId: $environmentId }) {
    totalCount
    list {
      id
      key
      value
      comment
      project { id title member }
    }
  }
}`

// SecretEnvelope is the wire form of a stored secret. Key, Value and Comment
// are ciphertext under the session key.
type SecretEnvelope struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Value   string `json:"value"`
	Comment string `json:"comment"`
	Project struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Member bool   `json:"member"`
	} `json:"project"`
}

type generalSecretsResponse struct {
	GeneralSecrets struct {
		TotalCount int              `json:"totalCount"`
		List       []SecretEnvelope `json:"list"`
	} `json:"generalSecrets"`
}

// FetchOptions controls how Fetch treats secrets it cannot decrypt.
type FetchOptions struct {
	// SkipUndecryptable leaves undecryptable secrets out of the result and
	// lists their IDs in FetchResult.Skipped instead of failing the fetch.
	SkipUndecryptable bool
}

// FetchResult is the decrypted secret set of an environment in server order.
type FetchResult struct {
	Secrets []secrets.Secret
	Skipped []string
}

// Fetch downloads and decrypts every secret of env. Membership is checked
// before anything is decrypted.
func (s *Store) Fetch(ctx context.Context, env EnvironmentRef, opts FetchOptions) (*FetchResult, error) {
	var resp generalSecretsResponse
	err := s.client.Do(ctx, generalSecretsQuery, map[string]any{"environmentId": env.ID}, &resp)
	if err != nil {
		if graphql.IsUnauthorized(err) {
			return nil, permissionDenied(env)
		}
		return nil, fmt.Errorf("failed to fetch secrets of %s: %w", env, err)
	}

	envelopes := resp.GeneralSecrets.List
	for _, envelope := range envelopes {
		if !envelope.Project.Member {
			return nil, permissionDenied(env)
		}
	}

	s.log.Debugf("Decrypting %d secrets of %s", len(envelopes), env)

	opened := make([]secrets.Secret, len(envelopes))
	ok := make([]bool, len(envelopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range envelopes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opened[i], ok[i] = s.open(envelopes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FetchResult{Secrets: make([]secrets.Secret, 0, len(envelopes))}
	for i, envelope := range envelopes {
		if ok[i] {
			result.Secrets = append(result.Secrets, opened[i])
			continue
		}
		if !opts.SkipUndecryptable {
			return nil, fmt.Errorf("%w: secret %s of %s was not encrypted for this session", kerrors.ErrDecryptionFailed, envelope.ID, env)
		}
		s.log.Warnf("Skipping secret %s of %s: it could not be decrypted", envelope.ID, env)
		result.Skipped = append(result.Skipped, envelope.ID)
	}

	return result, nil
}

func (s *Store) open(envelope SecretEnvelope) (secrets.Secret, bool) {
	key, ok := s.codec.Open(envelope.Key)
	if !ok || strings.TrimSpace(key) == "" {
		return secrets.Secret{}, false
	}
	value, ok := s.codec.Open(envelope.Value)
	if !ok {
		return secrets.Secret{}, false
	}
	comment := ""
	if envelope.Comment != "" {
		if comment, ok = s.codec.Open(envelope.Comment); !ok {
			return secrets.Secret{}, false
		}
	}

	return secrets.Secret{ID: envelope.ID, Key: key, Value: value, Comment: comment}.Normalized(), true
}
