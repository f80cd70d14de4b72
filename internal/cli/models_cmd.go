// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/jeranaias/quickchat/internal/prefs"
)

// =============================================================================
// MODELS COMMAND
// =============================================================================

// ModelPicker chooses one of models. The default shows a huh select.
type ModelPicker func(models []string, current string) (string, error)

// HandleModelsCommand lists the models the endpoint serves, marking the
// current one. With --pick the user chooses one and it is persisted.
//
// Without a credential, or when the endpoint has no listing, the built-in
// list is shown instead.
func HandleModelsCommand(ctx context.Context, rt *Runtime, args Args, s Streams, pick ModelPicker) error {
	current := rt.Session.Preferences().Model
	models := fetchModels(ctx, rt, s)
	if !slices.Contains(models, current) {
		models = append(models, current)
		slices.Sort(models)
	}

	if args.Pick {
		if pick == nil {
			if !isTerminal(s.In) {
				return &TTYRequiredError{Operation: "pick a model"}
			}
			pick = formModelPicker
		}
		chosen, err := pick(models, current)
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(s.Out, "canceled")
			return nil
		}
		if err != nil {
			return NewCommandError("models", "pick", "selection failed", err)
		}
		p, err := rt.Session.SetModel(chosen)
		if err != nil {
			return NewCommandError("models", "pick", "cannot save the model", err)
		}
		fmt.Fprintf(s.Out, "%s model set to %s\n", RenderStatus("ok"), p.Model)
		return nil
	}

	for _, m := range models {
		if m == current {
			fmt.Fprintf(s.Out, "* %s\n", SuccessStyle.Render(m))
			continue
		}
		fmt.Fprintf(s.Out, "  %s\n", m)
	}
	return nil
}

func fetchModels(ctx context.Context, rt *Runtime, s Streams) []string {
	fallback := slices.Clone(prefs.KnownModels)
	slices.Sort(fallback)

	if rt.Session.NeedsCredential() {
		return fallback
	}
	models, err := rt.ListModels(ctx)
	if err != nil {
		rt.Log.Debug().Err(err).Msg("model listing failed")
		fmt.Fprintf(s.Err, "%s could not list models (%v); showing defaults\n", WarningStyle.Render("[!]"), err)
		return fallback
	}
	if len(models) == 0 {
		return fallback
	}
	return models
}

func formModelPicker(models []string, current string) (string, error) {
	chosen := current
	options := make([]huh.Option[string], len(models))
	for i, m := range models {
		options[i] = huh.NewOption(m, m)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return chosen, nil
}
