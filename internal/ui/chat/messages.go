// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quickchat/internal/session"
	"github.com/jeranaias/quickchat/internal/transcript"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ResponseMsg carries the outcome of a submission.
type ResponseMsg struct {
	Outcome session.Outcome
}

// CopyRevertMsg restores the copy label after transcript.CopyRevertDelay.
type CopyRevertMsg struct {
	Token int
}

// ModelsMsg carries the endpoint's model list.
type ModelsMsg struct {
	Models []string
	Err    error
}

// ExportDoneMsg reports an export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// PrefsChangedMsg reports that another process rewrote the preference store.
type PrefsChangedMsg struct{}

// NoticeExpiredMsg clears a status-line notice.
type NoticeExpiredMsg struct {
	ID int
}

// noticeDuration is how long status-line notices stay up.
const noticeDuration = 4 * time.Second

func copyRevertCmd(token int) tea.Cmd {
	return tea.Tick(transcript.CopyRevertDelay, func(time.Time) tea.Msg {
		return CopyRevertMsg{Token: token}
	})
}

func noticeExpireCmd(id int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{ID: id}
	})
}

// waitForPrefs blocks until the watcher reports a change.
func waitForPrefs(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return PrefsChangedMsg{}
	}
}
