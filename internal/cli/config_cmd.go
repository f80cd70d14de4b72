// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/prefs"
)

const configUsage = "quickchat config show|path|get <key>|set <key> <value>"

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfigCommand shows or edits configuration.
//
// "model" and "theme" are preferences kept in the store; every other key
// is a dot-notation config.toml key (see config.Keys).
func HandleConfigCommand(rt *Runtime, args Args, out io.Writer) error {
	switch args.Subcommand {
	case "show", "list", "":
		return configShow(rt, out)
	case "path":
		return configPath(rt, out)
	case "get":
		if args.ConfigKey == "" {
			return ErrMissingArgument("key", configUsage)
		}
		return configGet(rt, args.ConfigKey, out)
	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return ErrMissingArgument("key and value", configUsage)
		}
		return configSet(rt, args.ConfigKey, args.ConfigVal, out)
	default:
		return &UsageError{Message: "unknown config subcommand: " + args.Subcommand, Usage: configUsage}
	}
}

func configShow(rt *Runtime, out io.Writer) error {
	p := rt.Session.Preferences()

	fmt.Fprintln(out, TitleStyle.Render("Preferences"))
	fmt.Fprintf(out, "%s%s\n", RenderLabel("model"), p.Model)
	fmt.Fprintf(out, "%s%s\n", RenderLabel("theme"), p.Theme)

	fmt.Fprintln(out)
	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	for _, key := range config.Keys() {
		v, err := rt.Config.Get(key)
		if err != nil {
			return NewCommandError("config", "show", key, err)
		}
		if v == "" {
			v = DimStyle.Render("(unset)")
		}
		fmt.Fprintf(out, "%s %s\n", LabelStyle.Width(30).Render(key), v)
	}
	return nil
}

func configPath(rt *Runtime, out io.Writer) error {
	cfgPath, err := config.ConfigPathTOML()
	if err != nil {
		return NewCommandError("config", "path", "cannot locate the config directory", err)
	}
	fmt.Fprintf(out, "%s%s\n", RenderLabel("config"), cfgPath)

	if rt.Config.Storage.Backend != config.BackendMemory {
		storePath, err := rt.Config.StorePath()
		if err != nil {
			return NewCommandError("config", "path", "cannot locate the store", err)
		}
		fmt.Fprintf(out, "%s%s\n", RenderLabel("store"), storePath)
	}
	if dir, err := rt.ExportDir(); err == nil {
		fmt.Fprintf(out, "%s%s\n", RenderLabel("exports"), dir)
	}
	return nil
}

func configGet(rt *Runtime, key string, out io.Writer) error {
	switch strings.ToLower(key) {
	case "model":
		fmt.Fprintln(out, rt.Session.Preferences().Model)
		return nil
	case "theme":
		fmt.Fprintln(out, rt.Session.Preferences().Theme)
		return nil
	}
	v, err := rt.Config.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error(), Usage: "keys: model, theme, " + strings.Join(config.Keys(), ", ")}
	}
	fmt.Fprintln(out, v)
	return nil
}

func configSet(rt *Runtime, key, value string, out io.Writer) error {
	switch strings.ToLower(key) {
	case "model":
		p, err := rt.Session.SetModel(value)
		if err != nil {
			return NewCommandError("config", "set", "cannot save the model", err)
		}
		fmt.Fprintf(out, "%s model = %s\n", RenderStatus("ok"), p.Model)
		return nil

	case "theme":
		want := strings.ToLower(strings.TrimSpace(value))
		if want != string(prefs.ThemeDark) && want != string(prefs.ThemeLight) {
			return &UsageError{Message: fmt.Sprintf("theme must be dark or light, got %q", value)}
		}
		p := rt.Session.Preferences()
		if string(p.Theme) != want {
			var err error
			if p, err = rt.Session.ToggleTheme(); err != nil {
				return NewCommandError("config", "set", "cannot save the theme", err)
			}
		}
		fmt.Fprintf(out, "%s theme = %s\n", RenderStatus("ok"), p.Theme)
		return nil
	}

	path, err := config.ConfigPathTOML()
	if err != nil {
		return NewCommandError("config", "set", "cannot locate the config file", err)
	}

	// Edit the file contents, not the effective config, so environment
	// overrides are not written back.
	file := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(file, path); err != nil {
			return NewCommandError("config", "set", "cannot read "+path, err)
		}
	}
	if err := file.Set(key, value); err != nil {
		return NewCommandError("config", "set", key, err)
	}
	if err := config.SaveTOML(file, path); err != nil {
		return NewCommandError("config", "set", "cannot write "+path, err)
	}

	got, _ := file.Get(key)
	fmt.Fprintf(out, "%s %s = %s\n", RenderStatus("ok"), strings.ToLower(key), got)
	return nil
}

// =============================================================================
// THEME COMMAND
// =============================================================================

// HandleThemeCommand toggles and persists the theme.
func HandleThemeCommand(rt *Runtime, out io.Writer) error {
	p, err := rt.Session.ToggleTheme()
	if err != nil {
		return NewCommandError("theme", "toggle", "cannot save the theme", err)
	}
	fmt.Fprintf(out, "theme: %s\n", p.Theme)
	return nil
}
