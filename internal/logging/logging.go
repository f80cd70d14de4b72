// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up the zerolog logger.
//
// The TUI owns the terminal, so log output always goes to a file. With no
// file configured the returned logger discards everything.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/quickchat/internal/config"
)

// New returns a logger for cfg and a closer for the underlying file.
func New(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	path := cfg.LogPath()
	if path == "" || cfg.Log.Level == "disabled" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("log level: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), io.NopCloser(nil), fmt.Errorf("open log file: %w", err)
	}

	return NewWithWriter(f, level), f, nil
}

// NewWithWriter returns a JSON logger writing to w at level.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", "quickchat").
		Logger()
}

// Console returns a human-readable logger for non-interactive commands.
func Console(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
