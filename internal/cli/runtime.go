// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/quickchat/internal/cloud"
	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/logging"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/session"
	"github.com/jeranaias/quickchat/internal/storage"
)

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime is the wired application shared by every front end.
type Runtime struct {
	Config      *config.Config
	Log         zerolog.Logger
	Store       storage.Store
	Prefs       *prefs.Store
	Credentials *credential.Provider
	Client      *cloud.Client
	Session     *session.Session

	closers []io.Closer
}

// RuntimeOptions configures NewRuntime. Only Config is required.
type RuntimeOptions struct {
	Config *config.Config
	Log    zerolog.Logger
	// Store replaces the backend selected by Config.Storage.
	Store storage.Store
	// Credentials replaces the provider built from Config.Credential.
	Credentials *credential.Provider
	// HTTPClient replaces the shared pooled client.
	HTTPClient *http.Client
	// Model overrides the persisted model for this process only.
	Model string
}

// NewRuntime opens the stores and builds the client and session.
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("runtime: config is required")
	}
	rt := &Runtime{Config: cfg, Log: opts.Log}

	rt.Store = opts.Store
	if rt.Store == nil {
		if err := config.EnsureConfigDir(); err != nil {
			return nil, NewCommandError("config", "open", "cannot create config directory", err)
		}
		st, err := storage.Open(cfg)
		if err != nil {
			return nil, NewCommandError("config", "open", "cannot open the store", err)
		}
		rt.Store = st
		if c, ok := st.(io.Closer); ok {
			rt.closers = append(rt.closers, c)
		}
	}
	rt.Prefs = prefs.NewStore(rt.Store)

	rt.Credentials = opts.Credentials
	if rt.Credentials == nil {
		rt.Credentials = credential.FromConfig(cfg, rt.Store, storage.NewMemoryStore()).WithLogger(rt.Log)
	}

	rt.Client = cloud.NewClient(cfg.Endpoint.URL).
		WithTimeout(time.Duration(cfg.Endpoint.TimeoutSecs) * time.Second).
		WithRateLimit(cfg.Endpoint.RequestsPerMinute).
		WithUserAgent("quickchat/" + Version).
		WithLogger(rt.Log)
	if opts.HTTPClient != nil {
		rt.Client = rt.Client.WithHTTPClient(opts.HTTPClient)
	}

	var completer session.Completer = rt.Client
	if opts.Model != "" {
		completer = modelOverride{Completer: rt.Client, model: opts.Model}
	}

	sess, err := session.New(session.Deps{
		Prefs:       rt.Prefs,
		Credentials: rt.Credentials,
		Client:      completer,
		Log:         rt.Log,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Session = sess

	rt.Log.Debug().
		Str("endpoint", cfg.Endpoint.URL).
		Str("mode", cfg.Endpoint.Mode).
		Str("store", cfg.Storage.Backend).
		Str("credential_source", string(rt.Credentials.Source())).
		Msg("runtime ready")
	return rt, nil
}

// Close releases the store.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// ExportDir is where transcript exports are written.
func (r *Runtime) ExportDir() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "exports"), nil
}

// ListModels fetches the served models with the current credential.
func (r *Runtime) ListModels(ctx context.Context) ([]string, error) {
	return r.Client.ListModels(ctx, r.Session.Credential().Value)
}

// modelOverride pins every request to one model without touching the
// persisted preference.
type modelOverride struct {
	session.Completer
	model string
}

func (m modelOverride) Complete(ctx context.Context, prompt, _, cred string) (string, error) {
	return m.Completer.Complete(ctx, prompt, m.model, cred)
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// LoadConfig loads the configuration and reports a broken file on stderr
// while continuing with defaults.
func LoadConfig(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if cfg == nil {
		return nil, NewCommandError("config", "load", "invalid configuration", err)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s %v (using defaults)\n", WarningStyle.Render("[!]"), err)
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// NewLogger returns the logger for cmd. Verbose line-mode commands log to
// stderr; the TUI owns the terminal and only ever logs to a file.
func NewLogger(cfg *config.Config, cmd Command, verbose bool) (zerolog.Logger, io.Closer, error) {
	if verbose && cmd != CmdTUI {
		return logging.Console(os.Stderr, zerolog.DebugLevel), io.NopCloser(nil), nil
	}
	return logging.New(cfg)
}
