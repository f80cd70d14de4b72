// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across quickchat.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync, used by the
//     file-backed key-value store, the config writer and the exporter
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation for the status bar
//   - StringWidth: terminal cell width of a string
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a model name into a fixed-width column
//	label := util.TruncateWidth(model, 24)
package util
