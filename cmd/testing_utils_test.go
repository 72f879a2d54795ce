package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/secretsync/internal/audit"
	"github.com/PolarWolf314/secretsync/internal/backendtest"
	"github.com/PolarWolf314/secretsync/internal/configs"
	"github.com/PolarWolf314/secretsync/internal/secrets"
	"github.com/PolarWolf314/secretsync/internal/workflows"
)

// testCLI is a CLI wired to a fake backend with one member project.
type testCLI struct {
	t   *testing.T
	srv *backendtest.Server
	env *workflows.Env
}

// setupTestCLI points every command at a fresh fake backend and a temporary
// config directory, and works in a temporary directory.
func setupTestCLI(t *testing.T) *testCLI {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	srv := backendtest.New(t)
	srv.AddProject(backendtest.Project{
		ID:           "proj-api",
		Title:        "api",
		Member:       true,
		Environments: []backendtest.Environment{{ID: "env-dev", Title: "development"}},
	})

	settings := configs.NewSettings(t.TempDir())
	env := &workflows.Env{
		Runtime: &configs.Runtime{
			Settings:      settings,
			Scope:         configs.GlobalScope,
			Token:         srv.DeviceToken,
			APIHost:       srv.URL,
			DashboardHost: "https://dashboard.test",
			Project:       "api",
			Environment:   "development",
			Timeout:       5 * time.Second,
			RSABits:       secrets.MinRSABits,
		},
		Audit:       audit.New(settings.AuditLogPath),
		Fingerprint: func() (string, error) { return "cli-test-fingerprint", nil },
	}

	newEnv = func() (*workflows.Env, error) {
		env.Log = Logger
		return env, nil
	}

	t.Cleanup(func() {
		ResetGlobalState()
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
	})

	return &testCLI{t: t, srv: srv, env: env}
}

// run executes the CLI with args and returns everything written to stdout
// and stderr.
func (c *testCLI) run(args ...string) (string, error) {
	c.t.Helper()

	resetFlagState()

	var out bytes.Buffer
	root := GetRootCmd()
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

func (c *testCLI) stored() map[string]string {
	values := map[string]string{}
	for _, s := range c.srv.Secrets("env-dev") {
		values[s.Key] = s.Value
	}
	return values
}
