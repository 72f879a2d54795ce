package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/secretsync/internal/audit"
	"github.com/PolarWolf314/secretsync/internal/auth"
	"github.com/PolarWolf314/secretsync/internal/backendtest"
	"github.com/PolarWolf314/secretsync/internal/configs"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	logger "github.com/PolarWolf314/secretsync/internal/logging"
	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFingerprint = "fingerprint-for-tests"

// newTestEnv starts a fake backend with one member project and returns an
// Env bound to its development environment.
func newTestEnv(t *testing.T) (*Env, *backendtest.Server) {
	t.Helper()

	srv := backendtest.New(t)
	srv.AddProject(backendtest.Project{
		ID:     "proj-api",
		Title:  "api",
		Member: true,
		Environments: []backendtest.Environment{
			{ID: "env-dev", Title: "development"},
		},
	})

	settings := configs.NewSettings(t.TempDir())
	env := &Env{
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
		Log:         logger.Logger{},
		Audit:       audit.New(settings.AuditLogPath),
		Fingerprint: func() (string, error) { return testFingerprint, nil },
	}
	return env, srv
}

func TestPullDecryptsSecrets(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.SetSecrets("env-dev",
		backendtest.Secret{ID: "1", Key: "DB_URL", Value: "postgres://db"},
		backendtest.Secret{ID: "2", Key: "API_KEY", Value: "abc"},
	)

	result, err := Pull(context.Background(), e, PullOptions{})
	require.NoError(t, err)

	assert.Equal(t, "api/development", result.Environment.String())
	require.Len(t, result.Secrets, 2)
	assert.Equal(t, "DB_URL", result.Secrets[0].Key)
	assert.Equal(t, "postgres://db", result.Secrets[0].Value)
}

func TestPullEncryptForDeviceRoundTripsThroughPush(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.SetSecrets("env-dev", backendtest.Secret{ID: "1", Key: "API_KEY", Value: "abc"})

	pulled, err := Pull(context.Background(), e, PullOptions{EncryptForDevice: true})
	require.NoError(t, err)
	require.Len(t, pulled.Secrets, 1)
	sealed := pulled.Secrets[0].Value
	assert.NotEqual(t, "abc", sealed)

	_, ok := secrets.DecryptWithPassphrase(sealed, testFingerprint)
	assert.True(t, ok)

	result, err := Push(context.Background(), e, PushOptions{
		Secrets:          map[string]string{"API_KEY": sealed},
		DecryptForDevice: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"API_KEY"}, result.Unchanged)
	stored := srv.Secrets("env-dev")
	require.Len(t, stored, 1)
	assert.Equal(t, "abc", stored[0].Value)
}

func TestPushDecryptForDeviceRejectsOtherMachines(t *testing.T) {
	e, srv := newTestEnv(t)

	sealed, err := secrets.EncryptWithPassphrase("abc", "another-machine")
	require.NoError(t, err)

	_, err = Push(context.Background(), e, PushOptions{
		Secrets:          map[string]string{"API_KEY": sealed},
		DecryptForDevice: true,
	})
	require.ErrorIs(t, err, kerrors.ErrEncryptedElsewhere)
	assert.Empty(t, srv.Calls())
}

func TestPullRequiresLogin(t *testing.T) {
	e, srv := newTestEnv(t)
	e.Runtime.Token = ""

	_, err := Pull(context.Background(), e, PullOptions{})
	require.ErrorIs(t, err, kerrors.ErrNotLoggedIn)
	assert.Empty(t, srv.Calls())
}

func TestPullRequiresSetup(t *testing.T) {
	e, _ := newTestEnv(t)
	e.Runtime.Project = ""

	_, err := Pull(context.Background(), e, PullOptions{})
	require.ErrorIs(t, err, kerrors.ErrProjectNotConfigured)
}

func TestPushMergesAndUploadsOnce(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.SetSecrets("env-dev",
		backendtest.Secret{ID: "1", Key: "DB_URL", Value: "old"},
		backendtest.Secret{ID: "2", Key: "KEEP", Value: "same"},
	)

	result, err := Push(context.Background(), e, PushOptions{Secrets: map[string]string{
		"db_url": "new",
		"KEEP":   "same",
		"TOKEN":  "t0k3n",
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"TOKEN"}, result.Added)
	assert.Equal(t, []string{"DB_URL"}, result.Updated)
	assert.Equal(t, []string{"KEEP"}, result.Unchanged)
	require.Len(t, srv.Uploads(), 1)

	stored := map[string]string{}
	for _, s := range srv.Secrets("env-dev") {
		stored[s.Key] = s.Value
	}
	assert.Equal(t, map[string]string{"DB_URL": "new", "KEEP": "same", "TOKEN": "t0k3n"}, stored)

	entries, err := e.Audit.ReadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OpPush, entries[0].Operation)
	assert.Equal(t, 2, entries[0].KeysCount)
	assert.Equal(t, result.RequestID, entries[0].RequestID)
	assert.Contains(t, srv.RequestIDs(), result.RequestID)
}

func TestClassifyChangesFollowsMergeOrder(t *testing.T) {
	existing := []secrets.Secret{{ID: "1", Key: "A", Value: "1"}}
	intended := map[string]string{"A": "2", "a": "1"}

	// Sorted raw keys are [A a], so "a" wins and the value is unchanged.
	for i := 0; i < 50; i++ {
		added, updated, unchanged := classifyChanges(existing, intended)
		require.Empty(t, added)
		require.Empty(t, updated)
		require.Equal(t, []string{"A"}, unchanged)
	}

	merged := secrets.Merge(existing, intended, nil, secrets.ModeUpsert)
	require.Len(t, merged.Secrets, 1)
	assert.Equal(t, "1", merged.Secrets[0].Value)
}

func TestPushDryRunDoesNotUpload(t *testing.T) {
	e, srv := newTestEnv(t)

	result, err := Push(context.Background(), e, PushOptions{Secrets: map[string]string{"A": "1"}, DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"A"}, result.Added)
	assert.Empty(t, srv.Uploads())
}

func TestPushRejectsBadInput(t *testing.T) {
	e, srv := newTestEnv(t)

	_, err := Push(context.Background(), e, PushOptions{})
	require.ErrorIs(t, err, kerrors.ErrNothingToPush)

	_, err = Push(context.Background(), e, PushOptions{Secrets: map[string]string{"BAD KEY": "x"}})
	require.ErrorIs(t, err, kerrors.ErrValidation)

	assert.Empty(t, srv.Calls())
}

func TestPushUploadFailure(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.FailUploads(true)

	_, err := Push(context.Background(), e, PushOptions{Secrets: map[string]string{"A": "1"}})
	require.ErrorIs(t, err, kerrors.ErrUploadFailed)

	entries, err := e.Audit.ReadEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteSendsDeleteRecords(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.SetSecrets("env-dev",
		backendtest.Secret{ID: "1", Key: "A", Value: "1"},
		backendtest.Secret{ID: "2", Key: "B", Value: "2"},
	)

	result, err := Delete(context.Background(), e, DeleteOptions{Keys: []string{"a", "missing"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, result.Deleted)
	assert.Equal(t, []string{"MISSING"}, result.Missing)

	require.Len(t, srv.Uploads(), 1)
	actions := map[string]string{}
	for _, u := range srv.Uploads()[0] {
		actions[u.Key] = u.Action
	}
	assert.Equal(t, map[string]string{"A": "DELETE", "B": "UPSERT"}, actions)

	remaining := srv.Secrets("env-dev")
	require.Len(t, remaining, 1)
	assert.Equal(t, "B", remaining[0].Key)
}

func TestDeleteNothingMatchingSkipsUpload(t *testing.T) {
	e, srv := newTestEnv(t)

	result, err := Delete(context.Background(), e, DeleteOptions{Keys: []string{"GONE"}})
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	assert.Equal(t, []string{"GONE"}, result.Missing)
	assert.Empty(t, srv.Uploads())
}

func TestMergeRequest(t *testing.T) {
	e, srv := newTestEnv(t)

	result, err := MergeRequest(context.Background(), e, MergeRequestOptions{Key: "api_key", Value: "v", Comment: "rotate"})
	require.NoError(t, err)
	assert.Equal(t, "API_KEY", result.Key)

	requests := srv.MergeRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "env-dev", requests[0].EnvironmentID)
	assert.Equal(t, "rotate", requests[0].Comment)
	require.Len(t, requests[0].Secrets, 1)
	assert.Equal(t, "v", requests[0].Secrets[0].Value)
}

func TestSetupWritesProjectConfig(t *testing.T) {
	e, _ := newTestEnv(t)
	e.Runtime.Project, e.Runtime.Environment = "", ""
	dir := t.TempDir()

	result, err := Setup(context.Background(), e, SetupOptions{Project: "API", Environment: "Development", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, configs.ProjectConfigFileName), result.ConfigPath)

	config, err := configs.LoadProjectConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "api", config.Setup.Project)
	assert.Equal(t, "development", config.Setup.Environment)
}

func TestSetupUnknownEnvironment(t *testing.T) {
	e, _ := newTestEnv(t)
	dir := t.TempDir()

	_, err := Setup(context.Background(), e, SetupOptions{Project: "api", Environment: "staging", Dir: dir})
	require.ErrorIs(t, err, kerrors.ErrEnvironmentNotFound)

	_, statErr := os.Stat(filepath.Join(dir, configs.ProjectConfigFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProjects(t *testing.T) {
	e, _ := newTestEnv(t)

	projects, err := Projects(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "api", projects[0].Name)
}

func TestLoginDeviceFlowSealsToken(t *testing.T) {
	e, srv := newTestEnv(t)
	e.Runtime.Token = ""

	var shownURL string
	result, err := Login(context.Background(), e, LoginOptions{
		Notify: func(_ auth.AuthCode, url string) { shownURL = url },
	})
	require.NoError(t, err)

	assert.True(t, result.Sealed)
	assert.Equal(t, "https://dashboard.test/auth/cli?authCode=AUTH-1234", shownURL)

	userConfig, err := configs.LoadUserConfig(e.Runtime.Settings.UserConfigPath)
	require.NoError(t, err)
	stored := userConfig.Scoped[configs.GlobalScope]
	assert.True(t, configs.IsSealed(stored.Token))
	assert.Equal(t, srv.URL, stored.APIHost)

	token, err := configs.OpenToken(stored.Token, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, srv.DeviceToken, token)
}

func TestLoginWithServiceTokenStoresClear(t *testing.T) {
	e, srv := newTestEnv(t)
	srv.DeviceToken = "Service-0123456789abcdefghijklmnopqrstuvwxyz0123"

	result, err := Login(context.Background(), e, LoginOptions{Token: srv.DeviceToken})
	require.NoError(t, err)
	assert.True(t, result.ServiceToken)
	assert.False(t, result.Sealed)

	userConfig, err := configs.LoadUserConfig(e.Runtime.Settings.UserConfigPath)
	require.NoError(t, err)
	assert.Equal(t, srv.DeviceToken, userConfig.Scoped[configs.GlobalScope].Token)
}

func TestLoginRefusesToReplaceWithoutForce(t *testing.T) {
	e, srv := newTestEnv(t)
	userConfig := &configs.UserConfig{}
	userConfig.SetScope(configs.GlobalScope, configs.ScopeConfig{Token: "existing"})
	require.NoError(t, configs.SaveUserConfig(e.Runtime.Settings.UserConfigPath, userConfig))

	_, err := Login(context.Background(), e, LoginOptions{})
	require.ErrorIs(t, err, kerrors.ErrAlreadyLoggedIn)
	assert.Empty(t, srv.Calls())

	_, err = Login(context.Background(), e, LoginOptions{Token: srv.DeviceToken, Force: true})
	require.NoError(t, err)
}

func TestLogoutRevokesAndClears(t *testing.T) {
	e, srv := newTestEnv(t)
	userConfig := &configs.UserConfig{}
	userConfig.SetScope(configs.GlobalScope, configs.ScopeConfig{Token: srv.DeviceToken, APIHost: srv.URL})
	require.NoError(t, configs.SaveUserConfig(e.Runtime.Settings.UserConfigPath, userConfig))

	result, err := Logout(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, result.Revoked)
	assert.Equal(t, []string{srv.DeviceToken}, srv.Revoked())

	loaded, err := configs.LoadUserConfig(e.Runtime.Settings.UserConfigPath)
	require.NoError(t, err)
	assert.Empty(t, loaded.Scoped[configs.GlobalScope].Token)
	assert.Equal(t, srv.URL, loaded.Scoped[configs.GlobalScope].APIHost)
}

func TestLogoutNotLoggedIn(t *testing.T) {
	e, _ := newTestEnv(t)
	e.Runtime.Token = ""

	_, err := Logout(context.Background(), e)
	require.ErrorIs(t, err, kerrors.ErrNotLoggedIn)
}

func TestLogFilters(t *testing.T) {
	e, _ := newTestEnv(t)
	e.Audit.Log(audit.Entry{Timestamp: "2026-01-01T10:00:00.000000Z", Operation: audit.OpLogin})
	e.Audit.Log(audit.Entry{Timestamp: "2026-01-02T10:00:00.000000Z", Operation: audit.OpPush, Project: "api"})
	e.Audit.Log(audit.Entry{Timestamp: "2026-01-03T10:00:00.000000Z", Operation: audit.OpDelete, Project: "api"})
	e.Audit.Log(audit.Entry{Timestamp: "2026-01-04T10:00:00.000000Z", Operation: audit.OpPush, Project: "web"})

	result, err := Log(e, LogOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalEntriesBeforeFilter)
	assert.Len(t, result.Entries, 4)

	result, err = Log(e, LogOptions{Project: "api"})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)

	result, err = Log(e, LogOptions{Operations: "push, delete", Since: "2026-01-03"})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, audit.OpDelete, result.Entries[0].Operation)

	result, err = Log(e, LogOptions{Until: "2026-01-02"})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)

	result, err = Log(e, LogOptions{Limit: 1, Reverse: true})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "web", result.Entries[0].Project)

	_, err = Log(e, LogOptions{Since: "01/02/2026"})
	require.ErrorIs(t, err, kerrors.ErrInvalidDateFormat)
}

func TestLogMissingFile(t *testing.T) {
	e, _ := newTestEnv(t)

	_, err := Log(e, LogOptions{})
	require.ErrorIs(t, err, kerrors.ErrNoAuditLog)
}

func TestFormatDetails(t *testing.T) {
	assert.Equal(t, "api/dev, 3 secrets", FormatDetails(audit.Entry{Operation: audit.OpPush, Project: "api", Environment: "dev", KeysCount: 3}))
	assert.Equal(t, "api/dev, A, B", FormatDetails(audit.Entry{Operation: audit.OpDelete, Project: "api", Environment: "dev", Keys: []string{"A", "B"}}))
	assert.Equal(t, "2026-01-02 10:00:00", FormatDateTime("2026-01-02T10:00:00.000000Z"))
}
