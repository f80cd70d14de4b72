// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists the user's model and theme choices.
//
// Preferences are plain values; Store maps them to the "model" and "theme"
// keys of a storage.Store. The model name is never validated here: an
// unknown model is passed through and rejected by the server.
package prefs

import (
	"fmt"
	"strings"

	"github.com/jeranaias/quickchat/internal/storage"
)

// Storage keys.
const (
	KeyModel = "model"
	KeyTheme = "theme"
)

// DefaultModel is used when no model has been chosen.
const DefaultModel = "llama3-8b-8192"

// KnownModels are offered when the endpoint cannot list its models.
var KnownModels = []string{
	"llama3-8b-8192",
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"gemma-7b-it",
	"gemma2-9b-it",
}

// Theme is the color scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme maps a stored value to a Theme. Anything other than "light"
// is dark.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// IsDark reports whether t is the dark theme.
func (t Theme) IsDark() bool {
	return t != ThemeLight
}

// Preferences is the persisted user choice.
type Preferences struct {
	Model string
	Theme Theme
}

// Defaults returns first-run preferences.
func Defaults() Preferences {
	return Preferences{Model: DefaultModel, Theme: ThemeDark}
}

// WithModel returns p with the model replaced. A blank model resets to
// DefaultModel.
func (p Preferences) WithModel(model string) Preferences {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	p.Model = model
	return p
}

// ToggleTheme returns p with the other theme.
func (p Preferences) ToggleTheme() Preferences {
	p.Theme = p.Theme.Toggle()
	return p
}

// Store reads and writes Preferences through a key-value store.
type Store struct {
	kv storage.Store
}

// NewStore returns a Store over kv.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the persisted preferences, filling defaults for missing keys.
func (s *Store) Load() (Preferences, error) {
	p := Defaults()

	model, ok, err := s.kv.Get(KeyModel)
	if err != nil {
		return p, fmt.Errorf("load model preference: %w", err)
	}
	if ok && strings.TrimSpace(model) != "" {
		p.Model = model
	}

	theme, ok, err := s.kv.Get(KeyTheme)
	if err != nil {
		return p, fmt.Errorf("load theme preference: %w", err)
	}
	if ok {
		p.Theme = ParseTheme(theme)
	}
	return p, nil
}

// Save persists both preferences.
func (s *Store) Save(p Preferences) error {
	if err := s.kv.Set(KeyModel, p.Model); err != nil {
		return fmt.Errorf("save model preference: %w", err)
	}
	if err := s.kv.Set(KeyTheme, string(p.Theme)); err != nil {
		return fmt.Errorf("save theme preference: %w", err)
	}
	return nil
}

// SetModel loads, replaces the model, and persists immediately.
func (s *Store) SetModel(model string) (Preferences, error) {
	p, err := s.Load()
	if err != nil {
		return p, err
	}
	p = p.WithModel(model)
	if err := s.kv.Set(KeyModel, p.Model); err != nil {
		return p, fmt.Errorf("save model preference: %w", err)
	}
	return p, nil
}

// ToggleTheme loads, flips the theme, and persists immediately.
func (s *Store) ToggleTheme() (Preferences, error) {
	p, err := s.Load()
	if err != nil {
		return p, err
	}
	p = p.ToggleTheme()
	if err := s.kv.Set(KeyTheme, string(p.Theme)); err != nil {
		return p, fmt.Errorf("save theme preference: %w", err)
	}
	return p, nil
}
