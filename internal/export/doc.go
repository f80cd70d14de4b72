// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current transcript to a standalone file.
//
// Export is a one-way, user-initiated snapshot; nothing is ever read back.
//
// # Formats
//
//   - HTML: self-contained page with the chat bubbles, fenced code as
//     <pre><code>, a working copy button, and dark/light styling. The body
//     is sanitized with bluemonday after formatting.
//   - Markdown: YAML front matter plus one section per turn.
//
// # Usage
//
//	doc := export.NewDocument(tr.Turns(), prefs.Model, prefs.Theme)
//	path, err := export.ToFile(doc, export.NewHTMLExporter(), dir)
package export
