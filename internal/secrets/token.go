// Package secrets keeps the remote API credential in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobxpress"

	// EnvToken overrides the keychain, mainly for headless dev setups.
	EnvToken = "JOBXPRESS_API_TOKEN"
)

// TokenAccount derives the keychain account name from the backend host, so
// tokens for different backends don't collide.
func TokenAccount(backendHost string) string {
	return fmt.Sprintf("jobxpress:api:%s", backendHost)
}

func GetAPIToken(account string) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(EnvToken)); tok != "" {
		return tok, nil
	}

	if strings.TrimSpace(account) != "" {
		tok, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(tok) != "" {
			return tok, nil
		}
	}

	return "", errors.New("API token not found (set it in the keychain or via " + EnvToken + ")")
}

func SetAPIToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}

func DeleteAPIToken(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
