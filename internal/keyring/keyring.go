// Package keyring keeps server secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/keeprun/internal/constants"
)

// Account names a secret stored under the keeprun service.
type Account string

const (
	AccountDatabase  Account = constants.KeyringDBConnection
	AccountJWTSecret Account = constants.KeyringJWTSecret
)

// Accounts lists every secret the CLI manages.
var Accounts = []Account{AccountDatabase, AccountJWTSecret}

var (
	// ErrNotFound is returned when no secret is stored for an account
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// ParseAccount accepts the short names used on the command line.
func ParseAccount(name string) (Account, error) {
	switch name {
	case "db", "database", string(AccountDatabase):
		return AccountDatabase, nil
	case "jwt", string(AccountJWTSecret):
		return AccountJWTSecret, nil
	}
	return "", fmt.Errorf("unknown secret %q (expected db or jwt)", name)
}

func Get(account Account) (string, error) {
	value, err := keyring.Get(constants.AppName, string(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func Set(account Account, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", account)
	}
	if err := keyring.Set(constants.AppName, string(account), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", account, err)
	}
	return nil
}

func Delete(account Account) error {
	if err := keyring.Delete(constants.AppName, string(account)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", account, err)
	}
	return nil
}

// GetConnectionString returns the stored database connection string.
func GetConnectionString() (string, error) {
	return Get(AccountDatabase)
}

// GetJWTSecret returns the stored token signing secret.
func GetJWTSecret() (string, error) {
	return Get(AccountJWTSecret)
}

// IsAvailable is a best-effort probe: a read that fails with anything other
// than ErrNotFound means the keyring can't be used.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
