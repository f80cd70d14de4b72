// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/session"
)

// maxStdinPrompt bounds a prompt piped on stdin.
// SECURITY: prevents reading an unbounded stream into memory.
const maxStdinPrompt = 1 << 20

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAskCommand sends one prompt and prints the reply.
//
// The prompt comes from the arguments, or from stdin when no arguments are
// given and stdin is not a terminal:
//
//	git diff | quickchat ask
func HandleAskCommand(ctx context.Context, rt *Runtime, args Args, s Streams) error {
	prompt := args.Query
	if strings.TrimSpace(prompt) == "" && s.In != nil && !isTerminal(s.In) {
		data, err := io.ReadAll(io.LimitReader(s.In, maxStdinPrompt))
		if err != nil {
			return NewCommandError("ask", "read", "cannot read prompt from stdin", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrMissingArgument("prompt", "quickchat ask <prompt...>")
	}

	if err := ensureCredential(ctx, rt, s); err != nil {
		return NewCommandError("ask", "authenticate", "no API key; get one at "+credential.KeyURL, err)
	}

	outcome := rt.Session.Submit(ctx, prompt)
	switch outcome.Kind {
	case session.Replied:
		fmt.Fprint(s.Out, renderReply(s.Out, outcome.Turn.Text, rt.Session.Preferences().Theme, args.Plain))
		return nil
	case session.Failed:
		return NewCommandError("ask", "send", strings.TrimPrefix(outcome.Turn.Text, "Error: "), outcome.Err)
	case session.NeedCredential:
		return NewCommandError("ask", "authenticate", "no API key; get one at "+credential.KeyURL, outcome.Err)
	default:
		return outcome.Err
	}
}

// ensureCredential prompts once for a missing key and reloads the session.
func ensureCredential(ctx context.Context, rt *Runtime, s Streams) error {
	if !rt.Session.NeedsCredential() {
		return nil
	}
	if _, err := rt.Credentials.Ensure(ctx, s.prompter()); err != nil {
		return err
	}
	return rt.Session.Reload()
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderReply renders markdown for terminals and leaves piped output
// untouched. Rendering failures fall back to the raw text.
func renderReply(w io.Writer, text string, theme prefs.Theme, plain bool) string {
	if plain || !isTerminal(w) || !ColorsEnabled() {
		return ensureNewline(text)
	}

	style := "dark"
	if !theme.IsDark() {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(terminalWidth(w)-4),
	)
	if err != nil {
		return ensureNewline(text)
	}
	out, err := r.Render(text)
	if err != nil {
		return ensureNewline(text)
	}
	return out
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
