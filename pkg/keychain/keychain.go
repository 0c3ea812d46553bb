package keychain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "litegram"

// ErrNotFound is returned when no secret is stored for the account.
var ErrNotFound = errors.New("secret not found in keychain")

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	secret, err := keyring.Get(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	if err != nil {
		return "", fmt.Errorf("read keychain %s: %w", account, err)
	}
	return strings.TrimSpace(secret), nil
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	return keyring.Set(serviceName, account, value)
}

func Delete(account string) error {
	err := keyring.Delete(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
