// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/quickchat/internal/credential"
)

const keyUsage = "quickchat key status|set [value]|clear"

// =============================================================================
// KEY COMMAND
// =============================================================================

// HandleKeyCommand manages the stored API key.
//
//	quickchat key status         where the key comes from (redacted)
//	quickchat key set            prompt with a masked form
//	echo $KEY | quickchat key set
//	quickchat key clear          remove the stored key
func HandleKeyCommand(ctx context.Context, rt *Runtime, args Args, s Streams) error {
	switch args.Subcommand {
	case "status", "show", "":
		return keyStatus(rt, s.Out)
	case "set", "add":
		return keySet(ctx, rt, args.ConfigVal, s)
	case "clear", "forget", "rm", "remove":
		return keyClear(rt, s.Out)
	default:
		return &UsageError{Message: "unknown key subcommand: " + args.Subcommand, Usage: keyUsage}
	}
}

func keyStatus(rt *Runtime, out io.Writer) error {
	fmt.Fprintln(out, TitleStyle.Render("API key"))
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Mode"), rt.Config.Endpoint.Mode)

	if rt.Credentials.Proxy() {
		fmt.Fprintf(out, "%s%s\n", RenderLabel("Status"), "not used; the proxy holds the key")
		return nil
	}

	cred, err := rt.Credentials.Resolve()
	switch {
	case errors.Is(err, credential.ErrMissingCredential):
		fmt.Fprintf(out, "%s%s not set\n", RenderLabel("Status"), RenderStatus("error"))
		fmt.Fprintf(out, "%s%s\n", RenderLabel("Get one at"), credential.KeyURL)
		return nil
	case err != nil:
		return NewCommandError("key", "status", "cannot read the key store", err)
	}

	fmt.Fprintf(out, "%s%s set\n", RenderLabel("Status"), RenderStatus("ok"))
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Key"), cred.Redacted())
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Source"), cred.Source)
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Store"), rt.Config.Credential.Store)
	return nil
}

func keySet(ctx context.Context, rt *Runtime, value string, s Streams) error {
	if rt.Credentials.Proxy() {
		return NewCommandError("key", "set", "proxy mode does not use a client key", nil)
	}

	if value != "" {
		// SECURITY: argv ends up in shell history and process listings.
		fmt.Fprintln(s.Err, WarningStyle.Render("[!]")+" passing the key as an argument leaves it in your shell history")
	}

	if value == "" && s.In != nil && !isTerminal(s.In) {
		line, err := bufio.NewReader(io.LimitReader(s.In, 4096)).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return NewCommandError("key", "set", "cannot read key from stdin", err)
		}
		value = line
	}

	if value == "" {
		prompter := s.prompter()
		if prompter == nil {
			return &TTYRequiredError{Operation: "prompt for the key"}
		}
		raw, err := prompter.PromptCredential(ctx)
		if errors.Is(err, credential.ErrPromptCanceled) {
			fmt.Fprintln(s.Out, "canceled")
			return nil
		}
		if err != nil {
			return NewCommandError("key", "set", "prompt failed", err)
		}
		value = raw
	}

	cred, err := rt.Credentials.Accept(value)
	if err != nil {
		return NewCommandError("key", "set", "key not stored", err)
	}
	fmt.Fprintf(s.Out, "%s key %s saved to %s storage\n", RenderStatus("ok"), cred.Redacted(), cred.Source)

	if rt.Credentials.Source() == credential.SourceEnv {
		fmt.Fprintln(s.Out, DimStyle.Render(credential.Key+" is set in the environment and takes precedence"))
	}
	return nil
}

func keyClear(rt *Runtime, out io.Writer) error {
	if rt.Credentials.Proxy() {
		fmt.Fprintln(out, "proxy mode: no client key is stored")
		return nil
	}
	if err := rt.Credentials.Invalidate(); err != nil {
		return NewCommandError("key", "clear", "cannot remove the stored key", err)
	}
	fmt.Fprintf(out, "%s stored key removed\n", RenderStatus("ok"))

	if rt.Credentials.Source() == credential.SourceEnv {
		fmt.Fprintln(out, DimStyle.Render(credential.Key+" is still set in the environment"))
	}
	return nil
}
