package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringUser is the keyring account used when no service id is set.
const DefaultKeyringUser = "default"

// ErrNoCredential is returned when the keyring holds no entry for a user.
var ErrNoCredential = errors.New("no credential stored")

// KeyringStore keeps the API key in the OS keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed credential store.
func NewKeyringStore(service string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("keyring service is required")
	}
	return &KeyringStore{service: service}, nil
}

// Get returns the secret stored for user.
func (k *KeyringStore) Get(user string) (string, error) {
	secret, err := keyring.Get(k.service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return secret, nil
}

// Set stores secret for user.
func (k *KeyringStore) Set(user, secret string) error {
	if err := keyring.Set(k.service, user, secret); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// Delete removes the secret for user. Deleting a missing entry is not an error.
func (k *KeyringStore) Delete(user string) error {
	if err := keyring.Delete(k.service, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}
