package slot

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultService is the keychain service name used by the CLI
	DefaultService = "optivoo-cli"

	// DefaultKey is the fixed slot name inside the service
	DefaultKey = "session-token"
)

// Keyring persists the token in the OS keychain/credential manager
type Keyring struct {
	service string
	key     string
}

// NewKeyring returns a keyring slot for the given service and key
func NewKeyring(service, key string) *Keyring {
	return &Keyring{service: service, key: key}
}

// Load retrieves the token from the OS keychain
func (k *Keyring) Load() (string, error) {
	token, err := keyring.Get(k.service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrEmpty
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", ErrEmpty
	}
	return token, nil
}

// Save stores the token in the OS keychain
func (k *Keyring) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := keyring.Set(k.service, k.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the token from the OS keychain
func (k *Keyring) Clear() error {
	if err := keyring.Delete(k.service, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
