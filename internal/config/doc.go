// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for quickchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env loading, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - EndpointConfig: completion endpoint, direct/proxy mode, timeout, pacing
//   - StorageConfig: durable key-value backend (file, sqlite, memory)
//   - CredentialConfig: where an entered API key is kept
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (QUICKCHAT_*), including values from ./.env
//   - ~/.quickchat/config.toml
//   - ~/.quickchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Endpoint.URL)
package config
