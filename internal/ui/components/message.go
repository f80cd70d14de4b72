// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quickchat/internal/transcript"
	"github.com/jeranaias/quickchat/internal/ui/styles"
	"github.com/jeranaias/quickchat/internal/util"
)

// =============================================================================
// TURN RENDERING
// =============================================================================

// TurnView renders one transcript turn.
type TurnView struct {
	Turn transcript.Turn
	// CopyLabel is drawn under assistant turns; empty hides it.
	CopyLabel string
	Width     int
}

// View renders the turn as a bubble.
func (v TurnView) View(theme *styles.Theme) string {
	width := v.Width
	if width < 20 {
		width = 20
	}

	switch v.Turn.Role {
	case transcript.RoleUser:
		header := theme.RoleLabel.Render("You")
		bubble := theme.UserBubble.Render(wordWrap(v.Turn.Text, width-4))
		return lipgloss.JoinVertical(lipgloss.Left, header, bubble)

	case transcript.RoleAssistant:
		header := theme.RoleLabel.Render("Assistant")
		bubble := theme.AssistantBubble.Render(renderSegments(v.Turn.Text, width-4, theme))
		parts := []string{header, bubble}
		if v.CopyLabel != "" {
			parts = append(parts, copyButton(v.CopyLabel, theme))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)

	default:
		return theme.ErrorBubble.Render(styles.StatusIndicators.Error + " " + wordWrap(v.Turn.Text, width-4))
	}
}

// renderSegments wraps prose and highlights fenced code.
func renderSegments(text string, width int, theme *styles.Theme) string {
	segments := transcript.Segments(text)
	if len(segments) == 0 {
		return ""
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg.Kind {
		case transcript.SegmentCode:
			cb := NewCodeBlock(seg.Lang, seg.Text)
			cb.MaxWidth = width
			parts = append(parts, cb.Render(theme))
		default:
			parts = append(parts, wordWrap(strings.Trim(seg.Text, "\n"), width))
		}
	}
	return strings.Join(parts, "\n")
}

func copyButton(label string, theme *styles.Theme) string {
	if label == transcript.CopiedLabel {
		return theme.CopiedButton.Render(label)
	}
	return theme.CopyButton.Render(label + " (ctrl+y)")
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// wordWrap wraps text to width terminal cells, keeping explicit newlines.
// Words wider than width are left on their own line.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for lineIdx, line := range strings.Split(text, "\n") {
		if lineIdx > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			if util.StringWidth(current)+1+util.StringWidth(word) <= width {
				current += " " + word
			} else {
				result.WriteString(current)
				result.WriteString("\n")
				current = word
			}
		}
		result.WriteString(current)
	}
	return result.String()
}
