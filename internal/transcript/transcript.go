// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Turn is a single transcript entry.
type Turn struct {
	ID   string
	Role Role
	Text string
	At   time.Time
}

// Transcript is the ordered list of turns. Safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{now: time.Now}
}

func (t *Transcript) append(role Role, text string) Turn {
	turn := Turn{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		At:   t.now(),
	}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn
}

// AppendUser adds the user's prompt.
func (t *Transcript) AppendUser(text string) Turn {
	return t.append(RoleUser, text)
}

// AppendAssistant adds a model reply.
func (t *Transcript) AppendAssistant(text string) Turn {
	return t.append(RoleAssistant, text)
}

// AppendError adds inline error text.
func (t *Transcript) AppendError(text string) Turn {
	return t.append(RoleError, text)
}

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// LastAssistant returns the most recent assistant turn.
func (t *Transcript) LastAssistant() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == RoleAssistant {
			return t.turns[i], true
		}
	}
	return Turn{}, false
}

// Clear removes every turn.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.turns = nil
	t.mu.Unlock()
}
