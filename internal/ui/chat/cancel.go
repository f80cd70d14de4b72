// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// inflight holds the cancel func of the running request. Model keeps it by
// pointer so Bubble Tea's value copies share one mutex.
type inflight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// start derives a cancelable context for a new request, canceling any
// previous one.
func (f *inflight) start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()
	return ctx
}

// stop cancels the running request, if any. Safe to call repeatedly.
func (f *inflight) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
