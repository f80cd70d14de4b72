// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
)

// ErrPromptCanceled is returned by a Prompter when the user declines.
var ErrPromptCanceled = errors.New("credential prompt canceled")

// Prompter asks the user for a key. Front ends supply their own: the TUI
// uses a masked input overlay, the REPL a password prompt, `key set` a form.
type Prompter interface {
	PromptCredential(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

// PromptCredential implements Prompter.
func (f PrompterFunc) PromptCredential(ctx context.Context) (string, error) {
	return f(ctx)
}

// Ensure resolves the credential, prompting once when it is missing.
// A canceled or empty prompt returns ErrMissingCredential.
func (p *Provider) Ensure(ctx context.Context, prompter Prompter) (Credential, error) {
	c, err := p.Resolve()
	if !errors.Is(err, ErrMissingCredential) {
		return c, err
	}
	if prompter == nil {
		return Credential{}, ErrMissingCredential
	}

	raw, err := prompter.PromptCredential(ctx)
	if errors.Is(err, ErrPromptCanceled) {
		return Credential{}, ErrMissingCredential
	}
	if err != nil {
		return Credential{}, err
	}
	return p.Accept(raw)
}
