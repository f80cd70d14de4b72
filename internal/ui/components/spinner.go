// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quickchat/internal/ui/styles"
)

// LoadingText is shown while a request is in flight.
const LoadingText = "Generating response..."

// cancelHint tells the user how to abandon the request.
const cancelHint = "esc to cancel"

// =============================================================================
// PENDING REQUEST INDICATOR
// =============================================================================

// Spinner marks the one request that may be in flight. It knows which
// model was asked so the line reads "Generating response... llama3 4s".
type Spinner struct {
	spinner spinner.Model
	model   string
	since   time.Time
	running bool
}

// NewSpinner returns an idle indicator using ASCII frames, which render the
// same on every terminal.
func NewSpinner() Spinner {
	return Spinner{spinner: spinner.New(spinner.WithSpinner(spinner.Line))}
}

// Start marks a request to model as in flight and returns the first tick.
func (s *Spinner) Start(model string) tea.Cmd {
	s.running = true
	s.model = model
	s.since = time.Now()
	return s.spinner.Tick
}

// Stop marks the request finished.
func (s *Spinner) Stop() {
	s.running = false
	s.model = ""
}

// IsActive reports whether a request is in flight.
func (s *Spinner) IsActive() bool {
	return s.running
}

// Elapsed is the time since Start, truncated to seconds.
func (s *Spinner) Elapsed() time.Duration {
	if !s.running {
		return 0
	}
	return time.Since(s.since).Truncate(time.Second)
}

// Update advances the animation. Ticks arriving after Stop are dropped so
// the tick loop ends.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.running {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the indicator line, or "" when idle.
func (s Spinner) View(theme *styles.Theme) string {
	if !s.running {
		return ""
	}
	text := LoadingText
	if s.model != "" {
		text += " " + s.model
	}
	return theme.Spinner.Render(s.spinner.View()) + " " +
		theme.ThinkingText.Render(fmt.Sprintf("%s %s", text, s.Elapsed())) +
		"  " + theme.OverlayHint.Render(cancelHint)
}
