// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the service name entries are filed under.
const DefaultKeyringService = "quickchat"

// KeyringStore keeps values in the operating system's secret store
// (Keychain, Secret Service, Windows Credential Manager).
type KeyringStore struct {
	Service string
}

// NewKeyringStore returns a KeyringStore for service.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{Service: service}
}

// Get implements Store.
func (k *KeyringStore) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := keyring.Get(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring: get %q: %w", key, unavailable(err))
	}
	return v, true, nil
}

// Set implements Store.
func (k *KeyringStore) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := keyring.Set(k.Service, key, value); err != nil {
		return fmt.Errorf("keyring: set %q: %w", key, unavailable(err))
	}
	return nil
}

// Remove implements Store.
func (k *KeyringStore) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := keyring.Delete(k.Service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring: remove %q: %w", key, unavailable(err))
	}
	return nil
}

// unavailable marks err as ErrUnavailable. Apart from a missing entry and an
// oversized value, go-keyring only fails when the platform secret service
// cannot be used.
func unavailable(err error) error {
	if errors.Is(err, keyring.ErrSetDataTooBig) {
		return err
	}
	return errors.Join(ErrUnavailable, err)
}
