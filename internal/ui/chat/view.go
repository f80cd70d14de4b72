// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/transcript"
	"github.com/jeranaias/quickchat/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the whole screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.overlay {
	case OverlayCredential:
		return m.place(m.renderCredentialOverlay())
	case OverlayModel:
		return m.place(m.renderModelOverlay())
	}

	parts := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderSpinnerLine(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	}
	if m.showFullHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) place(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHeader() string {
	p := m.sess.Preferences()
	title := m.theme.HeaderTitle.Render("quickchat")
	model := m.theme.HeaderModel.Render(" " + p.Model + " | " + string(p.Theme))
	return m.theme.Header.Width(m.width).Render(title + model)
}

func (m Model) renderSpinnerLine() string {
	if !m.busy {
		return ""
	}
	return m.spinner.View(m.theme)
}

func (m Model) renderStatusBar() string {
	bar := components.StatusBar{
		Model:     m.sess.Preferences().Model,
		Mode:      m.opts.Mode,
		Busy:      m.busy,
		Notice:    m.notice,
		NoticeErr: m.noticeErr,
		Width:     m.width,
	}
	if !m.sess.Proxy() {
		bar.Credential = string(m.sess.Credential().Source)
	}
	if m.opts.ShowHelp {
		bar.Shortcuts = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return bar.View(m.theme)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// updateViewport re-renders the transcript into the viewport, following the
// bottom when the view was already there.
func (m *Model) updateViewport() {
	atBottom := m.viewport.AtBottom()
	turns := m.sess.Transcript().Turns()
	m.renderedLen = len(turns)

	if len(turns) == 0 {
		m.viewport.SetContent(m.theme.EmptyHint.Render("No messages yet. Type a prompt and press Enter."))
		m.viewport.GotoTop()
		return
	}

	width := m.theme.BubbleWidth()
	if m.opts.WrapWidth > 0 && m.opts.WrapWidth < width {
		width = m.opts.WrapWidth
	}

	lastAssistant := ""
	if t, ok := m.sess.Transcript().LastAssistant(); ok {
		lastAssistant = t.ID
	}

	blocks := make([]string, 0, len(turns))
	for _, turn := range turns {
		label := ""
		if turn.Role == transcript.RoleAssistant && turn.ID == lastAssistant {
			label = transcript.CopyLabel
			if turn.ID == m.copyTurnID {
				label = m.copy.Label()
			}
		}

		cacheKey := turn.ID + "|" + label
		out, ok := m.rendered[cacheKey]
		if !ok {
			out = components.TurnView{Turn: turn, CopyLabel: label, Width: width}.View(m.theme)
			m.rendered[cacheKey] = out
		}
		blocks = append(blocks, out)
	}

	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderCredentialOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.OverlayTitle.Render("Please enter your Groq API key"))
	b.WriteString("\n\n")
	if m.keyNotice != "" {
		b.WriteString(m.theme.ErrorBubble.Render(m.keyNotice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.keyInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.OverlayHint.Render("enter save | esc skip | get a key at " + credential.KeyURL))
	return m.theme.Overlay.Render(b.String())
}

func (m Model) renderModelOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.OverlayTitle.Render("Choose a model"))
	b.WriteString("\n\n")
	b.WriteString(m.modelInput.View())
	b.WriteString("\n")
	current := m.sess.Preferences().Model
	for _, id := range m.matchingModels(8) {
		line := "  " + id
		if id == current {
			line = "* " + id
		}
		b.WriteString("\n")
		b.WriteString(m.theme.OverlayHint.Render(line))
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.OverlayHint.Render("tab complete | enter select | esc close"))
	return m.theme.Overlay.Render(b.String())
}
