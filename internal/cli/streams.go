// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/jeranaias/quickchat/internal/credential"
)

// Streams are the standard streams of a command. Tests substitute buffers.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// KeyPrompter asks for a missing API key. When nil, a masked form is
	// shown if In is a terminal; otherwise no prompt is possible.
	KeyPrompter credential.Prompter
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

func (s Streams) prompter() credential.Prompter {
	if s.KeyPrompter != nil {
		return s.KeyPrompter
	}
	if isTerminal(s.In) {
		return FormKeyPrompter()
	}
	return nil
}

// FormKeyPrompter asks for the key with a masked huh input.
func FormKeyPrompter() credential.Prompter {
	return credential.PrompterFunc(func(ctx context.Context) (string, error) {
		var key string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Groq API key").
					Description("Get one at " + credential.KeyURL).
					EchoMode(huh.EchoModePassword).
					Value(&key),
			),
		)
		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return "", credential.ErrPromptCanceled
			}
			return "", err
		}
		return key, nil
	})
}
