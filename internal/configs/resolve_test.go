package configs

import (
	"errors"
	"os"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/secrets"
)

// clearEnv unsets every variable Resolve reads so the host environment does
// not leak into the test. t.Setenv restores the original values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SECRETSYNC_TOKEN", "SECRETSYNC_PROJECT", "SECRETSYNC_ENVIRONMENT",
		"SECRETSYNC_API_HOST", "SECRETSYNC_DASHBOARD_HOST",
		"SECRETSYNC_TIMEOUT_SECONDS", "SECRETSYNC_RSA_BITS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func fixedFingerprint(fp string) func() (string, error) {
	return func() (string, error) { return fp, nil }
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)
	settings := NewSettings(t.TempDir())

	rt, err := Resolve(settings, t.TempDir(), fixedFingerprint("fp"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if rt.APIHost != DefaultAPIHost || rt.DashboardHost != DefaultDashboardHost {
		t.Errorf("Expected default hosts, got %q %q", rt.APIHost, rt.DashboardHost)
	}
	if rt.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", rt.Timeout)
	}
	if rt.RSABits != secrets.DefaultRSABits {
		t.Errorf("Expected %d RSA bits, got %d", secrets.DefaultRSABits, rt.RSABits)
	}
	if !errors.Is(rt.RequireToken(), kerrors.ErrNotLoggedIn) {
		t.Error("Expected RequireToken to report ErrNotLoggedIn")
	}
	if !errors.Is(rt.RequireProject(), kerrors.ErrProjectNotConfigured) {
		t.Error("Expected RequireProject to report ErrProjectNotConfigured")
	}
}

func TestResolveOpensSealedToken(t *testing.T) {
	clearEnv(t)
	settings := NewSettings(t.TempDir())
	projectDir := t.TempDir()

	sealed, err := SealToken("user-token", "fp")
	if err != nil {
		t.Fatalf("SealToken failed: %v", err)
	}
	config := &UserConfig{}
	config.SetScope(GlobalScope, ScopeConfig{Token: sealed, APIHost: "https://stored.example/graphql"})
	if err := SaveUserConfig(settings.UserConfigPath, config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}
	if err := SaveProjectConfig(projectDir, &ProjectConfig{Setup: Setup{Project: "api", Environment: "development"}}); err != nil {
		t.Fatalf("SaveProjectConfig failed: %v", err)
	}

	rt, err := Resolve(settings, projectDir, fixedFingerprint("fp"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if rt.Token != "user-token" {
		t.Errorf("Expected opened token, got %q", rt.Token)
	}
	if rt.APIHost != "https://stored.example/graphql" {
		t.Errorf("Expected stored api host, got %q", rt.APIHost)
	}
	if rt.Project != "api" || rt.Environment != "development" || rt.ProjectRoot != projectDir {
		t.Errorf("Unexpected project binding %+v", rt)
	}
}

func TestResolveEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	settings := NewSettings(t.TempDir())
	projectDir := t.TempDir()

	config := &UserConfig{}
	config.SetScope(GlobalScope, ScopeConfig{Token: "sealed:not-readable", APIHost: "https://stored.example/graphql"})
	if err := SaveUserConfig(settings.UserConfigPath, config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}
	if err := SaveProjectConfig(projectDir, &ProjectConfig{Setup: Setup{Project: "api", Environment: "development"}}); err != nil {
		t.Fatalf("SaveProjectConfig failed: %v", err)
	}

	t.Setenv("SECRETSYNC_TOKEN", "ServiceEnvToken")
	t.Setenv("SECRETSYNC_API_HOST", "https://env.example/graphql")
	t.Setenv("SECRETSYNC_ENVIRONMENT", "production")
	t.Setenv("SECRETSYNC_TIMEOUT_SECONDS", "5")
	t.Setenv("SECRETSYNC_RSA_BITS", "4096")

	rt, err := Resolve(settings, projectDir, func() (string, error) {
		t.Fatal("fingerprint must not be read when the token comes from the environment")
		return "", nil
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if rt.Token != "ServiceEnvToken" {
		t.Errorf("Expected env token, got %q", rt.Token)
	}
	if rt.APIHost != "https://env.example/graphql" {
		t.Errorf("Expected env api host, got %q", rt.APIHost)
	}
	if rt.Project != "api" || rt.Environment != "production" {
		t.Errorf("Expected project from file and environment from env, got %q/%q", rt.Project, rt.Environment)
	}
	if rt.Timeout != 5*time.Second || rt.RSABits != 4096 {
		t.Errorf("Expected 5s/4096, got %s/%d", rt.Timeout, rt.RSABits)
	}
}

func TestResolveFingerprintFailure(t *testing.T) {
	clearEnv(t)
	settings := NewSettings(t.TempDir())

	sealed, _ := SealToken("user-token", "fp")
	config := &UserConfig{}
	config.SetScope(GlobalScope, ScopeConfig{Token: sealed})
	if err := SaveUserConfig(settings.UserConfigPath, config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}

	_, err := Resolve(settings, t.TempDir(), func() (string, error) {
		return "", kerrors.ErrFingerprintUnavailable
	})
	if !errors.Is(err, kerrors.ErrFingerprintUnavailable) {
		t.Errorf("Expected ErrFingerprintUnavailable, got %v", err)
	}
}
