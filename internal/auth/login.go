package auth

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"

	"golang.org/x/time/rate"
)

const addAuthCodeMutation = `mutation AddAuthCode($fingerprint: String!, $os: String!, $hostname: String!, $arch: String!) {
  addAuthCode(authCodeInput: { fingerprint: $fingerprint, os: $os, hostname: $hostname, arch: $arch }) {
    authCode
    pollingCode
  }
}`

const verifyAuthCodeMutation = `mutation VerifyAuthCode($pollingCode: String!) {
  verifyAuthCode(pollingCode: $pollingCode) {
    token
  }
}`

const revokeAuthTokenMutation = `mutation RevokeAuthToken($token: String!) {
  revokeAuthToken(token: $token) {
    status
    message
  }
}`

// DeviceInfo describes the machine requesting a device token.
type DeviceInfo struct {
	Fingerprint string
	OS          string
	Hostname    string
	Arch        string
}

// AuthCode is shown to the user, who confirms it in the dashboard.
type AuthCode struct {
	AuthCode    string `json:"authCode"`
	PollingCode string `json:"pollingCode"`
}

// RevokeResult is the backend's answer to a token revocation.
type RevokeResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Login registers the device and waits until the user confirms the auth code.
// notify is called once with the code before polling starts. It returns the
// device token issued by the backend.
func (a *Authenticator) Login(ctx context.Context, device DeviceInfo, notify func(AuthCode)) (string, error) {
	var codeResp struct {
		AddAuthCode *AuthCode `json:"addAuthCode"`
	}
	err := a.client.Do(ctx, addAuthCodeMutation, map[string]any{
		"fingerprint": device.Fingerprint,
		"os":          device.OS,
		"hostname":    device.Hostname,
		"arch":        device.Arch,
	}, &codeResp)
	if err != nil {
		return "", authError(err)
	}
	if codeResp.AddAuthCode == nil || codeResp.AddAuthCode.PollingCode == "" {
		return "", fmt.Errorf("%w: incomplete addAuthCode response", kerrors.ErrAuthenticationFailed)
	}

	if notify != nil {
		notify(*codeResp.AddAuthCode)
	}

	pollCtx, cancel := context.WithTimeout(ctx, a.loginTimeout)
	defer cancel()

	// The first poll fires immediately, later ones once per interval.
	limiter := rate.NewLimiter(rate.Every(a.pollInterval), 1)

	for {
		if err := limiter.Wait(pollCtx); err != nil {
			return "", a.loginWaitError(ctx)
		}

		token, pending, err := a.verify(pollCtx, codeResp.AddAuthCode.PollingCode)
		if err != nil {
			if pollCtx.Err() != nil {
				return "", a.loginWaitError(ctx)
			}
			return "", err
		}
		if !pending {
			a.log.Infof("Device login confirmed")
			return token, nil
		}
		a.log.Debugf("Auth code not confirmed yet, polling again in %s", a.pollInterval)
	}
}

func (a *Authenticator) verify(ctx context.Context, pollingCode string) (string, bool, error) {
	var resp struct {
		VerifyAuthCode *struct {
			Token string `json:"token"`
		} `json:"verifyAuthCode"`
	}
	err := a.client.Do(ctx, verifyAuthCodeMutation, map[string]any{"pollingCode": pollingCode}, &resp)

	var respErr *graphql.ResponseError
	if errors.As(err, &respErr) {
		return "", true, nil
	}
	if err != nil {
		return "", false, err
	}
	if resp.VerifyAuthCode == nil || resp.VerifyAuthCode.Token == "" {
		return "", true, nil
	}
	return resp.VerifyAuthCode.Token, false, nil
}

// loginWaitError reports why polling stopped. The limiter also fails early
// when the next poll would land past the login deadline.
func (a *Authenticator) loginWaitError(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %s", kerrors.ErrLoginTimeout, a.loginTimeout)
}

// Revoke invalidates a device token on the backend.
func (a *Authenticator) Revoke(ctx context.Context, token string) (*RevokeResult, error) {
	var resp struct {
		RevokeAuthToken *RevokeResult `json:"revokeAuthToken"`
	}
	if err := a.client.Do(ctx, revokeAuthTokenMutation, map[string]any{"token": token}, &resp); err != nil {
		return nil, fmt.Errorf("failed to revoke device token: %w", err)
	}
	if resp.RevokeAuthToken == nil {
		return &RevokeResult{}, nil
	}
	return resp.RevokeAuthToken, nil
}
