// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the in-memory chat transcript and its
// formatting rules.
//
// Turns are never persisted. Formatting always HTML-escapes text before
// fenced code blocks are rewritten, so model output cannot inject markup.
//
// # Key Types
//
//   - Turn: one rendered entry (user, assistant or inline error)
//   - Transcript: ordered turns for the current run
//   - Segment: prose or fenced code, as split for terminal rendering
//   - CopyControl: the Copy / Copied! label of an assistant turn
package transcript
