// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence used by quickchat.
//
// Every read or write of a persisted value (preferences, the API key) goes
// through the Store interface so that backends can be swapped and tests can
// use the in-memory fake.
//
// # Backends
//
//   - MemoryStore: process-lifetime map; the session store and the test fake
//   - FileStore: JSON object file written atomically (~/.quickchat/store.json)
//   - SQLiteStore: kv table in a SQLite database (modernc.org/sqlite)
//   - KeyringStore: OS secret store (zalando/go-keyring)
//   - Base64Store: wrapper that Base64-encodes values; obfuscation only
//
// # Usage
//
//	st, err := storage.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer storage.Close(st)
//	model, ok, err := st.Get("model")
package storage
