// Package shared contains testing utilities shared between integration tests.
// Integration tests drive the real command tree with configuration resolved
// from the environment and files on disk, against an in-process backend.
package shared

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/PolarWolf314/secretsync/cmd"
	"github.com/PolarWolf314/secretsync/internal/backendtest"
	"github.com/PolarWolf314/secretsync/internal/secrets"
)

// ServiceToken is accepted by backends returned from SetupTestEnvironment.
// Service tokens are stored unsealed, so tests do not depend on the machine id.
const ServiceToken = "Service-integration-0123456789abcdefghijklmnopqrstuvwxyz"

var resolvedEnv = []string{
	"SECRETSYNC_TOKEN", "SECRETSYNC_PROJECT", "SECRETSYNC_ENVIRONMENT",
	"SECRETSYNC_API_HOST", "SECRETSYNC_DASHBOARD_HOST",
	"SECRETSYNC_TIMEOUT_SECONDS", "SECRETSYNC_RSA_BITS",
}

// SetupTestEnvironment starts a fake backend with one member project "api"
// holding a "development" environment, points the CLI at it and changes to a
// fresh working directory. Everything is restored when the test ends.
func SetupTestEnvironment(t *testing.T) *backendtest.Server {
	t.Helper()

	for _, key := range resolvedEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	srv := backendtest.New(t)
	srv.DeviceToken = ServiceToken
	srv.AddProject(backendtest.Project{
		ID:           "proj-api",
		Title:        "api",
		Member:       true,
		Environments: []backendtest.Environment{{ID: "env-dev", Title: "development"}},
	})

	t.Setenv("NO_COLOR", "1")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SECRETSYNC_API_HOST", srv.URL)
	t.Setenv("SECRETSYNC_RSA_BITS", strconv.Itoa(secrets.MinRSABits))

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Cleanup(func() {
		cmd.ResetGlobalState()
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
	})

	return srv
}

// RunCLI executes the command line and returns its combined output.
func RunCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd.ResetGlobalState()

	var out bytes.Buffer
	root := cmd.GetRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	defer func() {
		root.SetArgs(nil)
		root.SetOut(nil)
		root.SetErr(nil)
		root.SetIn(nil)
	}()

	err := root.Execute()
	return out.String(), err
}

// MustRunCLI is RunCLI failing the test on error.
func MustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	output, err := RunCLI(t, args...)
	if err != nil {
		t.Fatalf("secretsync %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return output
}
