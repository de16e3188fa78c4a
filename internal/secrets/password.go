package secrets

import (
	"errors"
	"os"
	"strings"

	"leadscout/internal/config"

	"github.com/rotisserie/eris"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "leadscout"
)

var ErrNoCredentials = errors.New("sheets service-account credentials not found (store them in the keychain or set sink.sheets.credentials_file)")

// SheetsCredentials returns the service-account JSON for the Sheets sink.
// The keychain wins over the credentials file.
func SheetsCredentials(cfg config.Sheets) ([]byte, error) {
	if acct := strings.TrimSpace(cfg.KeyringAccount); acct != "" {
		js, err := keyring.Get(KeyringService, acct)
		if err == nil && strings.TrimSpace(js) != "" {
			return []byte(js), nil
		}
	}

	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(err, "read credentials file %s", path)
		}
	}

	return nil, ErrNoCredentials
}

// StoreSheetsCredentials copies the JSON key at path into the keychain.
func StoreSheetsCredentials(keyringAccount, path string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read credentials file %s", path)
	}
	if strings.TrimSpace(string(b)) == "" {
		return errors.New("credentials file is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, string(b))
}

func DeleteSheetsCredentials(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}
