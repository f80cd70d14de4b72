// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the rendering pieces of the quickchat TUI.
//
// # Components
//
//   - CodeBlock: chroma-highlighted fenced code in a bordered frame
//   - RenderTurn: one transcript turn as a bubble (prose wrapped, code framed)
//   - StatusBar: model, mode, credential source and transient notices
//   - Spinner: the "Generating response..." indicator
//
// Components are stateless renderers or small value types; the chat model
// owns all state and passes the active styles.Theme in.
package components
