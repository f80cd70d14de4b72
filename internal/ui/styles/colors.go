// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quickchat/internal/prefs"
)

// Palette is the set of colors one theme is drawn with.
type Palette struct {
	// Accents
	Purple  lipgloss.Color
	Cyan    lipgloss.Color
	Emerald lipgloss.Color
	Rose    lipgloss.Color
	Amber   lipgloss.Color

	// Surfaces
	Surface    lipgloss.Color
	SurfaceDim lipgloss.Color
	Overlay    lipgloss.Color
	OverlayDim lipgloss.Color

	// Text
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Bubbles
	UserBubbleBg          lipgloss.Color
	UserBubbleFg          lipgloss.Color
	UserBubbleBorder      lipgloss.Color
	AssistantBubbleFg     lipgloss.Color
	AssistantBubbleBorder lipgloss.Color
	ErrorFg               lipgloss.Color
	ErrorBorder           lipgloss.Color

	// Chroma style used for fenced code.
	SyntaxStyle string
}

// =============================================================================
// PALETTES (Catppuccin Mocha / Latte)
// =============================================================================

// DarkPalette is the default palette.
var DarkPalette = Palette{
	Purple:  "#A78BFA",
	Cyan:    "#22D3EE",
	Emerald: "#34D399",
	Rose:    "#FB7185",
	Amber:   "#FBBF24",

	Surface:    "#1E1E2E",
	SurfaceDim: "#181825",
	Overlay:    "#313244",
	OverlayDim: "#45475A",

	TextPrimary:   "#CDD6F4",
	TextSecondary: "#A6ADC8",
	TextMuted:     "#6C7086",

	UserBubbleBg:          "#1D4ED8",
	UserBubbleFg:          "#E0F2FE",
	UserBubbleBorder:      "#3B82F6",
	AssistantBubbleFg:     "#E9E4F5",
	AssistantBubbleBorder: "#A78BFA",
	ErrorFg:               "#FECACA",
	ErrorBorder:           "#EF4444",

	SyntaxStyle: "catppuccin-mocha",
}

// LightPalette is used when the light theme is selected.
var LightPalette = Palette{
	Purple:  "#7C3AED",
	Cyan:    "#0891B2",
	Emerald: "#059669",
	Rose:    "#E11D48",
	Amber:   "#D97706",

	Surface:    "#FFFFFF",
	SurfaceDim: "#F5F5F5",
	Overlay:    "#E5E5E5",
	OverlayDim: "#D4D4D4",

	TextPrimary:   "#1F2937",
	TextSecondary: "#6B7280",
	TextMuted:     "#9CA3AF",

	UserBubbleBg:          "#DBEAFE",
	UserBubbleFg:          "#1E40AF",
	UserBubbleBorder:      "#3B82F6",
	AssistantBubbleFg:     "#5B4B8A",
	AssistantBubbleBorder: "#C4B5FD",
	ErrorFg:               "#991B1B",
	ErrorBorder:           "#DC2626",

	SyntaxStyle: "catppuccin-latte",
}

// PaletteFor returns the palette of a theme preference.
func PaletteFor(theme prefs.Theme) Palette {
	if theme.IsDark() {
		return DarkPalette
	}
	return LightPalette
}

// =============================================================================
// ACCESSIBILITY: Shapes alongside colors
// =============================================================================

// StatusIndicators are ASCII markers shown next to colored status text so
// state is readable without color.
var StatusIndicators = struct {
	Success string
	Error   string
	Pending string
}{
	Success: "[OK]",
	Error:   "[X]",
	Pending: "[ ]",
}
