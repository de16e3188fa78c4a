package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"leadscout/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSheetsCredentialsPrefersKeychain(t *testing.T) {
	keyring.MockInit()

	dir := t.TempDir()
	file := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"from":"file"}`), 0o600))

	cfg := config.Sheets{KeyringAccount: "acct", CredentialsFile: file}

	b, err := SheetsCredentials(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(b))

	keychainFile := filepath.Join(dir, "kc.json")
	require.NoError(t, os.WriteFile(keychainFile, []byte(`{"from":"keychain"}`), 0o600))
	require.NoError(t, StoreSheetsCredentials("acct", keychainFile))

	b, err = SheetsCredentials(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"keychain"}`, string(b))

	require.NoError(t, DeleteSheetsCredentials("acct"))
	b, err = SheetsCredentials(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(b))
}

func TestSheetsCredentialsMissing(t *testing.T) {
	keyring.MockInit()

	_, err := SheetsCredentials(config.Sheets{
		KeyringAccount:  "nobody",
		CredentialsFile: filepath.Join(t.TempDir(), "absent.json"),
	})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestStoreSheetsCredentialsValidates(t *testing.T) {
	keyring.MockInit()

	assert.Error(t, StoreSheetsCredentials("", "x"))
	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.Error(t, StoreSheetsCredentials("acct", empty))
	assert.Error(t, DeleteSheetsCredentials(" "))
}
