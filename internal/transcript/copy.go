// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import "time"

// Copy control labels and timing.
const (
	CopyLabel       = "Copy"
	CopiedLabel     = "Copied!"
	CopyRevertDelay = 2 * time.Second
)

// CopyControl tracks the label of a copy affordance. Press flips it to
// CopiedLabel; only the Revert carrying the latest token flips it back, so
// a second press restarts the delay.
type CopyControl struct {
	copied bool
	token  int
}

// Label returns the current label.
func (c *CopyControl) Label() string {
	if c.copied {
		return CopiedLabel
	}
	return CopyLabel
}

// Copied reports whether the control shows CopiedLabel.
func (c *CopyControl) Copied() bool {
	return c.copied
}

// Press marks the control copied and returns the token to pass to Revert
// after CopyRevertDelay.
func (c *CopyControl) Press() int {
	c.token++
	c.copied = true
	return c.token
}

// Revert restores CopyLabel if token is from the most recent Press.
func (c *CopyControl) Revert(token int) {
	if token == c.token {
		c.copied = false
	}
}
