package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/trackmate/internal/credential"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	"github.com/nhle/trackmate/tests/testutil"
)

// cliEnv writes a config pointing at a fresh database, stores one user in
// it and swaps the keyring for an in-memory one.
func cliEnv(t *testing.T) (configPath string, ring keyring.Keyring) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trackmate.db")
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"database:\n  path: "+dbPath+"\nlogging:\n  level: error\nsync:\n  poll_interval_sec: 120\n",
	), 0o600))

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	_, err = s.UpsertUser(context.Background(), model.User{
		GoogleID: "g-ada", Email: "ada@example.com", RefreshToken: "refresh",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ring = keyring.NewArrayKeyring([]keyring.Item{
		{Key: credential.KeySecretKey, Data: []byte("cli-test-secret")},
	})
	prev := openCredentials
	openCredentials = func() (*credential.Store, error) { return credential.NewStore(ring), nil }
	t.Cleanup(func() { openCredentials = prev })

	return configPath, ring
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestJobsCommands(t *testing.T) {
	cfg, _ := cliEnv(t)

	out, err := runCLI(t, "--config", cfg, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No job applications yet.")

	out, err = runCLI(t, "--config", cfg, "jobs", "add",
		"--company", "Acme", "--position", "Backend Engineer", "--location", "Remote")
	require.NoError(t, err)
	id := regexp.MustCompile(`Added (\S+)`).FindStringSubmatch(out)
	require.Len(t, id, 2, out)

	out, err = runCLI(t, "--config", cfg, "jobs", "list", "--user", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "applied")

	out, err = runCLI(t, "--config", cfg, "jobs", "update", id[1], "--status", "offer")
	require.NoError(t, err)
	assert.Contains(t, out, "offer")

	_, err = runCLI(t, "--config", cfg, "jobs", "update", id[1])
	assert.ErrorContains(t, err, "no fields to update")

	_, err = runCLI(t, "--config", cfg, "jobs", "list", "--status", "ghosted")
	assert.Error(t, err)

	out, err = runCLI(t, "--config", cfg, "jobs", "delete", id[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")

	_, err = runCLI(t, "--config", cfg, "jobs", "delete", id[1])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmailsCommandEmpty(t *testing.T) {
	cfg, _ := cliEnv(t)

	out, err := runCLI(t, "--config", cfg, "emails", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages")

	_, err = runCLI(t, "--config", cfg, "emails", "--range", "1y")
	assert.Error(t, err)
}

func TestResolveUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := resolveUser(ctx, s, "")
	assert.ErrorContains(t, err, "no signed-in users")

	ada := testutil.NewTestUser(t, s, "ada@example.com")

	got, err := resolveUser(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	got, err = resolveUser(ctx, s, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	testutil.NewTestUser(t, s, "bob@example.com")
	_, err = resolveUser(ctx, s, "")
	assert.ErrorContains(t, err, "choose one with --user")

	got, err = resolveUser(ctx, s, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = resolveUser(ctx, s, "carol@example.com")
	assert.ErrorContains(t, err, `unknown user "carol@example.com"`)
}

func TestSetupApply(t *testing.T) {
	cfg := &model.AppConfig{}
	cfg.Google.ClientSecret = "old"
	cfg.Auth.SecretKey = model.DefaultSecretKey
	cfg.Sync.PollIntervalSec = 300
	cfg.Sources = []model.SourceConfig{{ID: "work-mail"}}

	answers := setupAnswers{
		ClientID:     " client-id ",
		ClientSecret: "client-secret",
		FrontendURL:  "http://localhost:5173",
		AddIMAP:      true,
		IMAPName:     "Work Mail",
		IMAPHost:     "imap.work.test",
		IMAPPort:     "993",
		IMAPUsername: "ada",
		IMAPPassword: "hunter2",
		IMAPTLS:      true,
	}

	secrets, err := answers.apply(cfg, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "client-id", cfg.Google.ClientID)
	assert.Empty(t, cfg.Google.ClientSecret)
	assert.Empty(t, cfg.Auth.SecretKey)

	require.Len(t, cfg.Sources, 2)
	src := cfg.Sources[1]
	assert.Equal(t, "work-mail-2", src.ID)
	assert.Equal(t, "imap", src.Type)
	assert.Equal(t, "user-1", src.UserID)
	assert.Equal(t, 300, src.PollIntervalSec)
	assert.Equal(t, "true", src.Config["tls"])

	assert.Equal(t, "client-secret", secrets[credential.KeyGoogleClientSecret])
	assert.Len(t, secrets[credential.KeySecretKey], 64)
	assert.Equal(t, "hunter2", secrets[credential.IMAPPasswordKey("work-mail-2")])
}

func TestPersistSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))

	cfg := &model.AppConfig{}
	cfg.Google.ClientID = "client-id"
	require.NoError(t, persistSetup(path, cfg, creds, map[string]string{
		credential.KeySecretKey: "signing-key",
	}))

	got, err := creds.Get(credential.KeySecretKey)
	require.NoError(t, err)
	assert.Equal(t, "signing-key", got)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "client-id", loaded.Google.ClientID)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validatePort("993"))
	assert.Error(t, validatePort(""))
	assert.Error(t, validatePort("99999"))
	assert.Error(t, validatePort("imap"))

	assert.NoError(t, validateURL("http://localhost:5173"))
	assert.Error(t, validateURL("localhost"))

	assert.Error(t, validateRequired("Name")("  "))
	assert.Equal(t, "work-mail", slugify("  Work Mail! "))
}
