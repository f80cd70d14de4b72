// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/base64"
	"fmt"
)

// Base64Store wraps another store and Base64-encodes values.
//
// SECURITY: This is obfuscation, not encryption. It exists so that values
// written by older clients that encoded the session key can still be read.
type Base64Store struct {
	Inner Store
}

// NewBase64Store wraps inner.
func NewBase64Store(inner Store) *Base64Store {
	return &Base64Store{Inner: inner}
}

// Get implements Store.
func (b *Base64Store) Get(key string) (string, bool, error) {
	raw, ok, err := b.Inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: %q is not base64: %v", ErrCorrupt, key, err)
	}
	return string(decoded), true, nil
}

// Set implements Store.
func (b *Base64Store) Set(key, value string) error {
	return b.Inner.Set(key, base64.StdEncoding.EncodeToString([]byte(value)))
}

// Remove implements Store.
func (b *Base64Store) Remove(key string) error {
	return b.Inner.Remove(key)
}
