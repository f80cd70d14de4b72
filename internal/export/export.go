// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/transcript"
	"github.com/jeranaias/quickchat/internal/util"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("transcript is empty")

// Document is what gets exported.
type Document struct {
	Title    string
	Model    string
	Theme    prefs.Theme
	Turns    []transcript.Turn
	Exported time.Time
}

// NewDocument builds a Document stamped with the current time.
func NewDocument(turns []transcript.Turn, model string, theme prefs.Theme) Document {
	return Document{
		Title:    "quickchat transcript",
		Model:    model,
		Theme:    theme,
		Turns:    turns,
		Exported: time.Now(),
	}
}

// Exporter renders a Document.
type Exporter interface {
	Export(doc Document) ([]byte, error)
	FileExtension() string
}

// ToFile renders doc with exporter into dir and returns the written path.
// SECURITY: Files are written atomically with 0600 permissions.
func ToFile(doc Document, exporter Exporter, dir string) (string, error) {
	if len(doc.Turns) == 0 {
		return "", ErrEmpty
	}

	content, err := exporter.Export(doc)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	stamp := doc.Exported
	if stamp.IsZero() {
		stamp = time.Now()
	}
	name := fmt.Sprintf("chat_%s%s", stamp.Format("20060102_150405"), exporter.FileExtension())
	path := filepath.Join(dir, name)

	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// roleLabel returns the display label for a turn role.
func roleLabel(role transcript.Role) string {
	switch role {
	case transcript.RoleUser:
		return "You"
	case transcript.RoleAssistant:
		return "Assistant"
	case transcript.RoleError:
		return "Error"
	default:
		return "Unknown"
	}
}
