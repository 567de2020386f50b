package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "fleettrack-cli"

// KeyringStore persists values in the OS keychain/credential manager, one
// entry per key and backend host
type KeyringStore struct {
	scope string
}

// NewKeyringStore scopes entries to a backend host so logging in to a second
// backend does not clobber the first
func NewKeyringStore(scope string) *KeyringStore {
	return &KeyringStore{scope: scope}
}

// account returns a unique keyring account for a key
func (k *KeyringStore) account(key string) string {
	return fmt.Sprintf("%s@%s", key, k.scope)
}

func (k *KeyringStore) Get(_ context.Context, key string) (string, bool, error) {
	value, err := keyring.Get(keyringService, k.account(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, true, nil
}

func (k *KeyringStore) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(keyringService, k.account(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *KeyringStore) Delete(_ context.Context, key string) error {
	if err := keyring.Delete(keyringService, k.account(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
