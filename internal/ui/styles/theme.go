// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/quickchat/internal/prefs"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Name         prefs.Theme
	Palette      Palette
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style
	RoleLabel       lipgloss.Style
	CopyButton      lipgloss.Style
	CopiedButton    lipgloss.Style
	EmptyHint       lipgloss.Style

	// ==========================================================================
	// CODE BLOCKS
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style
	CodeLineNum   lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Spinner        lipgloss.Style
	ThinkingText   lipgloss.Style
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style
	StatusNotice   lipgloss.Style
	StatusError    lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	OverlayHint  lipgloss.Style
}

// NewTheme creates a theme for the given preference.
func NewTheme(name prefs.Theme) *Theme {
	if name == "" {
		name = prefs.ThemeDark
	}
	t := &Theme{
		Name:         name,
		Palette:      PaletteFor(name),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// Toggle returns a theme for the opposite preference with the same size.
func (t *Theme) Toggle() *Theme {
	next := NewTheme(t.Name.Toggle())
	next.SetSize(t.Width, t.Height)
	return next
}

// IsDark reports whether this is the dark theme.
func (t *Theme) IsDark() bool {
	return t.Name.IsDark()
}

// HasTrueColor reports whether the terminal renders 24-bit color.
func (t *Theme) HasTrueColor() bool {
	return t.ColorProfile == termenv.TrueColor
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	p := t.Palette

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Cyan).
		Background(p.SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Purple).
		Background(p.SurfaceDim)

	t.HeaderModel = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Background(p.SurfaceDim).
		Italic(true)

	// Transcript
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserBubbleFg).
		Background(p.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(p.ErrorFg).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.ErrorBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.RoleLabel = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Bold(true)

	t.CopyButton = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Background(p.Overlay).
		Padding(0, 1)

	t.CopiedButton = lipgloss.NewStyle().
		Foreground(p.Surface).
		Background(p.Emerald).
		Bold(true).
		Padding(0, 1)

	t.EmptyHint = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	// Code blocks
	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Background(p.OverlayDim).
		Padding(0, 1).
		Bold(true)

	t.CodeLineNum = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	// Input and status
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Overlay)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Cyan).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Foreground(p.TextSecondary).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(p.Cyan).
		Background(p.SurfaceDim).
		Bold(true)

	t.StatusNotice = lipgloss.NewStyle().
		Foreground(p.Emerald).
		Background(p.SurfaceDim)

	t.StatusError = lipgloss.NewStyle().
		Foreground(p.Rose).
		Background(p.SurfaceDim).
		Bold(true)

	// Overlays
	t.Overlay = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Purple).
		Padding(1, 2)

	t.OverlayTitle = lipgloss.NewStyle().
		Foreground(p.Purple).
		Bold(true)

	t.OverlayHint = lipgloss.NewStyle().
		Foreground(p.TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth returns the content width of a transcript bubble.
func (t *Theme) BubbleWidth() int {
	// border (2) + padding (2) + margin (4)
	w := t.Width - 8
	if w < 20 {
		w = 20
	}
	return w
}
