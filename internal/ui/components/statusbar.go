// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quickchat/internal/ui/styles"
	"github.com/jeranaias/quickchat/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line of the TUI.
type StatusBar struct {
	Model      string
	Mode       string // direct or proxy
	Credential string // credential source
	Busy       bool
	Notice     string
	NoticeErr  bool
	Width      int
	Shortcuts  string
}

// View renders the bar to exactly Width cells.
func (s StatusBar) View(theme *styles.Theme) string {
	width := s.Width
	if width <= 0 {
		width = 80
	}

	state := styles.StatusIndicators.Success
	if s.Busy {
		state = styles.StatusIndicators.Pending
	}

	left := []string{state, s.Model, s.Mode}
	if s.Credential != "" {
		left = append(left, "key:"+s.Credential)
	}
	leftText := strings.Join(left, " | ")

	right := s.Shortcuts
	rightStyle := theme.StatusBar
	if s.Notice != "" {
		right = s.Notice
		rightStyle = theme.StatusNotice
		if s.NoticeErr {
			rightStyle = theme.StatusError
		}
	}

	// StatusBar style pads one cell on each side.
	inner := width - 2
	leftText = util.TruncateWidth(leftText, inner)
	room := inner - util.StringWidth(leftText) - 1
	if room < 0 {
		room = 0
	}
	right = util.TruncateWidth(right, room)
	gap := inner - util.StringWidth(leftText) - util.StringWidth(right)
	if gap < 0 {
		gap = 0
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.StatusKey.Render(leftText),
		theme.StatusBar.UnsetPadding().Render(strings.Repeat(" ", gap)),
		rightStyle.UnsetPadding().Render(right),
	)
	return theme.StatusBar.Render(line)
}
