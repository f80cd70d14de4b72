// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI front ends of
// quickchat.
//
// With no command, main starts the full-screen chat. The other commands
// share the same configuration, stores and session pipeline:
//
//	quickchat ask "explain goroutines"     one request, markdown rendered
//	quickchat repl                        line-mode chat with history
//	quickchat key status|set|clear        manage the API key
//	quickchat models [--pick]             list or choose a model
//	quickchat config show|path|set        inspect or edit config.toml
//	quickchat theme                       toggle the persisted theme
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: parsed command-line arguments
//   - Runtime: the wired config, stores, client and session
//   - CommandError: structured failure mapped to an exit code
package cli
