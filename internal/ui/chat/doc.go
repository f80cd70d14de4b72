// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view of quickchat.
//
// The Model wraps a session.Session: the transcript is drawn in a scrolling
// viewport, the prompt is a multi-line textarea, and the single in-flight
// request runs in a tea.Cmd.
//
// # Overlays
//
//   - Credential prompt: masked input shown at startup when no key is
//     available and after a 401. Esc declines and records the missing-key
//     message.
//   - Model picker: text input with suggestions from the endpoint's model
//     list, falling back to a built-in list.
//
// # Key Bindings
//
// Enter submits. Shift+Enter, Alt+Enter and Ctrl+J insert a newline.
// See DefaultKeyMap for the rest.
package chat
