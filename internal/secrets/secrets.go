package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobfunnel-engine/internal/config"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "jobfunnel"

// Env fallbacks for headless deployments with no keychain daemon.
const (
	envTelegramToken = "JOBFUNNEL_TELEGRAM_TOKEN"
	envIMAPPassword  = "JOBFUNNEL_IMAP_PASSWORD"
)

// GetTelegramToken resolves the bot token: keychain first, env second.
func GetTelegramToken(keyringAccount string) (string, error) {
	if tok := lookup(keyringAccount, envTelegramToken); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("telegram token not found (set keychain account %q or %s)",
		keyringAccount, envTelegramToken)
}

// GetIMAPPassword resolves the alert inbox password the same way.
func GetIMAPPassword(keyringAccount string) (string, error) {
	if pw := lookup(keyringAccount, envIMAPPassword); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("IMAP password not found (set keychain account %q or %s)",
		keyringAccount, envIMAPPassword)
}

// Set writes a secret into the keychain.
func Set(keyringAccount, value string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, value)
}

// Delete removes a secret from the keychain.
func Delete(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// IMAPKeyringAccount derives the keychain account name for the alert
// inbox from config, so two inboxes never collide.
func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("jobfunnel:imap:%s@%s",
		cfg.Sources.EmailAlerts.Username,
		cfg.Sources.EmailAlerts.IMAPHost,
	)
}

func lookup(keyringAccount, envName string) string {
	if strings.TrimSpace(keyringAccount) != "" {
		if v, err := keyring.Get(KeyringService, keyringAccount); err == nil && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return strings.TrimSpace(os.Getenv(envName))
}
