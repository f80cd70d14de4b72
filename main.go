// quickchat - A terminal chat client for hosted language models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quickchat/internal/cli"
	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// prefsDebounce coalesces the burst of events an atomic store write makes.
const prefsDebounce = 150 * time.Millisecond

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion()
		return cli.ExitSuccess
	}

	cfg, err := cli.LoadConfig(os.Stderr)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}

	log, logCloser, err := cli.NewLogger(cfg, cmd, args.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logCloser.Close()

	// The TUI reads Ctrl+C as a key and the REPL cancels per request, so
	// only the one-shot commands stop on SIGINT here.
	signals := []os.Signal{syscall.SIGTERM}
	if cmd != cli.CmdTUI && cmd != cli.CmdRepl {
		signals = append(signals, os.Interrupt)
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	rt, err := cli.NewRuntime(cli.RuntimeOptions{
		Config: cfg,
		Log:    log,
		Model:  args.Model,
	})
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	defer rt.Close()

	log.Debug().Str("command", cmd.String()).Msg("starting")

	streams := cli.StdStreams()
	switch cmd {
	case cli.CmdTUI:
		err = runTUI(ctx, rt)
	case cli.CmdAsk:
		err = cli.HandleAskCommand(ctx, rt, args, streams)
	case cli.CmdRepl:
		err = cli.HandleReplCommand(ctx, rt, args, streams)
	case cli.CmdKey:
		err = cli.HandleKeyCommand(ctx, rt, args, streams)
	case cli.CmdModels:
		err = cli.HandleModelsCommand(ctx, rt, args, streams, nil)
	case cli.CmdConfig:
		err = cli.HandleConfigCommand(rt, args, streams.Out)
	case cli.CmdTheme:
		err = cli.HandleThemeCommand(rt, streams.Out)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd.String()).Msg("command failed")
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

// runTUI runs the full-screen chat until the user quits.
func runTUI(ctx context.Context, rt *cli.Runtime) error {
	exportDir, err := rt.ExportDir()
	if err != nil {
		return err
	}

	// Pick up a model or theme chosen by another instance.
	var changes <-chan struct{}
	if rt.Config.Storage.Backend != config.BackendMemory {
		if path, err := rt.Config.StorePath(); err == nil {
			w, err := prefs.Watch(path, prefsDebounce, rt.Log)
			if err != nil {
				rt.Log.Warn().Err(err).Msg("preference watcher disabled")
			} else {
				defer w.Close()
				changes = w.Changes()
			}
		}
	}

	m := chat.New(chat.Options{
		Session:      rt.Session,
		Mode:         rt.Config.Endpoint.Mode,
		Models:       rt.Client,
		ExportDir:    exportDir,
		PrefsChanged: changes,
		WrapWidth:    rt.Config.UI.WrapWidth,
		ShowHelp:     rt.Config.UI.ShowHelp,
		Log:          rt.Log,
		Context:      ctx,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse wheel scrolling
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running quickchat: %w", err)
	}
	return nil
}
