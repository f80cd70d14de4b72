// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/quickchat/internal/config"
)

// Store is a string key-value store.
//
// Get reports ok=false (with a nil error) for a missing key. Remove of a
// missing key is not an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// ErrEmptyKey is returned when a store operation is given an empty key.
var ErrEmptyKey = errors.New("storage: empty key")

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("storage: corrupt value")

// ErrUnavailable means the backing service cannot be reached, for example
// a keyring with no secret service running. Nothing can be stored in it.
var ErrUnavailable = errors.New("storage: backend unavailable")

// Open returns the durable store selected by cfg.Storage.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		path, err := cfg.StorePath()
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	case config.BackendFile, "":
		path, err := cfg.StorePath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

// Close closes st if the backend holds resources.
func Close(st Store) error {
	if c, ok := st.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
