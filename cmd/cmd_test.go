package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/secretsync/internal/backendtest"
	"github.com/PolarWolf314/secretsync/internal/configs"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullPrintsDotenv(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev",
		backendtest.Secret{ID: "1", Key: "DB_URL", Value: "postgres://db"},
		backendtest.Secret{ID: "2", Key: "API_KEY", Value: "abc"},
	)

	output, err := cli.run("secrets", "pull")
	require.NoError(t, err)

	parsed, err := godotenv.Unmarshal(output)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DB_URL": "postgres://db", "API_KEY": "abc"}, parsed)
}

func TestPullWritesOutputFile(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev", backendtest.Secret{ID: "1", Key: "TOKEN", Value: "s3cret"})

	path := filepath.Join(t.TempDir(), ".env")
	output, err := cli.run("secrets", "pull", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote 1 secrets")

	parsed, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", parsed["TOKEN"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestPullEncryptedFileRoundTripsThroughPush(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev", backendtest.Secret{ID: "1", Key: "TOKEN", Value: "s3cret"})

	path := filepath.Join(t.TempDir(), ".env.local")
	_, err := cli.run("secrets", "pull", "--output", path, "--encrypt")
	require.NoError(t, err)

	parsed, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", parsed["TOKEN"])
	plaintext, ok, err := secrets.DecryptForDevice(parsed["TOKEN"], cli.env.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s3cret", plaintext)

	_, err = cli.run("secrets", "push", "--file", path, "--decrypt")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TOKEN": "s3cret"}, cli.stored())
}

func TestPushDecryptRejectsPlainValues(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("secrets", "push", "--decrypt", "A=plain")
	require.ErrorIs(t, err, kerrors.ErrEncryptedElsewhere)
	assert.Contains(t, output, "encrypted on another device")
	assert.Empty(t, cli.srv.Uploads())
}

func TestPullJSON(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev", backendtest.Secret{ID: "1", Key: "A", Value: "one"})

	output, err := cli.run("secrets", "pull", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"A": "one"}`, output)
}

func TestPullNotLoggedInIsNotAnError(t *testing.T) {
	cli := setupTestCLI(t)
	cli.env.Runtime.Token = ""

	output, err := cli.run("secrets", "pull")
	require.NoError(t, err)
	assert.Contains(t, output, "You are not logged in")
	assert.Contains(t, output, "secretsync login")
}

func TestPushArguments(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev", backendtest.Secret{ID: "1", Key: "KEEP", Value: "k"})

	output, err := cli.run("secrets", "push", "api_key=abc", "URL=http://x?a=b")
	require.NoError(t, err)
	assert.Contains(t, output, "Pushed 2 secrets")

	assert.Equal(t, map[string]string{"KEEP": "k", "API_KEY": "abc", "URL": "http://x?a=b"}, cli.stored())
}

func TestPushFromFile(t *testing.T) {
	cli := setupTestCLI(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nA=1\nB=\"two words\"\n"), 0600))

	_, err := cli.run("secrets", "push", "--file", path, "B=override")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "1", "B": "override"}, cli.stored())
}

func TestPushDryRun(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("secrets", "push", "--dry-run", "A=1")
	require.NoError(t, err)
	assert.Contains(t, output, "Dry run")
	assert.Empty(t, cli.srv.Uploads())
}

func TestPushRejectsMalformedArgument(t *testing.T) {
	cli := setupTestCLI(t)

	_, err := cli.run("secrets", "push", "NOVALUE")
	require.ErrorIs(t, err, kerrors.ErrValidation)
	assert.Empty(t, cli.srv.Calls())
}

func TestPushNothing(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("secrets", "push")
	require.NoError(t, err)
	assert.Contains(t, output, kerrors.ErrNothingToPush.Error())
}

func TestPushUploadFailureExitsNonZero(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.FailUploads(true)

	output, err := cli.run("secrets", "push", "A=1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, kerrors.ErrUploadFailed))
	assert.Contains(t, output, "✗")
}

func TestDelete(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.SetSecrets("env-dev",
		backendtest.Secret{ID: "1", Key: "A", Value: "1"},
		backendtest.Secret{ID: "2", Key: "B", Value: "2"},
	)

	output, err := cli.run("secrets", "delete", "--yes", "a", "nope")
	require.NoError(t, err)
	assert.Contains(t, output, "Deleted A")
	assert.Contains(t, output, "Not found: NOPE")

	assert.Equal(t, map[string]string{"B": "2"}, cli.stored())
}

func TestMergeRequestMasksValue(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("secrets", "merge-request", "api_key", "supersecretvalue", "--comment", "rotate")
	require.NoError(t, err)
	assert.Contains(t, output, "Proposed API_KEY=su******")
	assert.NotContains(t, output, "supersecretvalue")

	requests := cli.srv.MergeRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "rotate", requests[0].Comment)
}

func TestProjects(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("projects")
	require.NoError(t, err)
	assert.Contains(t, output, "'api'")
	assert.Contains(t, output, "(development)")
}

func TestSetupWritesConfigInWorkingDirectory(t *testing.T) {
	cli := setupTestCLI(t)
	cli.env.Runtime.Project, cli.env.Runtime.Environment = "", ""

	output, err := cli.run("setup", "api", "development")
	require.NoError(t, err)
	assert.Contains(t, output, "Using 'api/development'")

	wd, err := os.Getwd()
	require.NoError(t, err)
	config, err := configs.LoadProjectConfig(wd)
	require.NoError(t, err)
	assert.Equal(t, "development", config.Setup.Environment)
}

func TestSetupUnknownProject(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("setup", "nope", "development")
	require.Error(t, err)
	assert.Contains(t, output, "secretsync projects")
}

func TestLoginWithServiceToken(t *testing.T) {
	cli := setupTestCLI(t)
	cli.srv.DeviceToken = "Service-0123456789abcdefghijklmnopqrstuvwxyz0123"

	output, err := cli.run("login", "--token", cli.srv.DeviceToken)
	require.NoError(t, err)
	assert.Contains(t, output, "Logged in")
	assert.Contains(t, output, "Service token stored unsealed")

	output, err = cli.run("login", "--token", cli.srv.DeviceToken)
	require.NoError(t, err)
	assert.Contains(t, output, "already logged in")

	output, err = cli.run("login", "--token", cli.srv.DeviceToken, "--force")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged in")
}

func TestLoginShowsCode(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("login")
	require.NoError(t, err)
	assert.Contains(t, output, "AUTH-1234")
	assert.Contains(t, output, "https://dashboard.test/auth/cli?authCode=AUTH-1234")
}

func TestLogout(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("logout")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged out")
	assert.Equal(t, []string{cli.srv.DeviceToken}, cli.srv.Revoked())
}

func TestLogShowsOperations(t *testing.T) {
	cli := setupTestCLI(t)

	output, err := cli.run("log")
	require.NoError(t, err)
	assert.Contains(t, output, "No audit log found")

	_, err = cli.run("secrets", "push", "A=1")
	require.NoError(t, err)

	output, err = cli.run("log", "--operation", "push")
	require.NoError(t, err)
	assert.Contains(t, output, "api/development, 1 secrets")
	assert.Contains(t, output, "dev@example.com")

	_, err = cli.run("log", "--since", "yesterday")
	require.ErrorIs(t, err, kerrors.ErrInvalidDateFormat)
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	cli := setupTestCLI(t)

	_, err := cli.run("secrets", "push", "--dry-run", "A=1")
	require.NoError(t, err)
	assert.Empty(t, cli.srv.Uploads())

	_, err = cli.run("secrets", "push", "A=1")
	require.NoError(t, err)
	assert.Len(t, cli.srv.Uploads(), 1)
}
