// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the quickchat TUI.
//
// The theme follows the persisted dark/light preference rather than the
// terminal background, so both palettes are explicit colors. The terminal
// color profile is still detected with termenv and reported on the Theme.
//
// # Usage
//
//	theme := styles.NewTheme(prefs.ThemeDark)
//	bubble := theme.AssistantBubble.Render(text)
//	theme = theme.Toggle()
package styles
