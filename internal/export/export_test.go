// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/transcript"
)

func sampleDoc() Document {
	tr := transcript.New()
	tr.AppendUser("How do I print in JS?")
	tr.AppendAssistant("Use this:\n```js\nconsole.log(1)```")
	return Document{
		Title:    "quickchat transcript",
		Model:    "llama3-8b-8192",
		Theme:    prefs.ThemeLight,
		Turns:    tr.Turns(),
		Exported: time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

// =============================================================================
// HTML
// =============================================================================

func TestHTMLExporter_Structure(t *testing.T) {
	out, err := NewHTMLExporter().Export(sampleDoc())
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, `<body class="light-theme">`)
	assert.Contains(t, page, `<div class="message user-message chat-bubble">How do I print in JS?</div>`)
	assert.Contains(t, page, `<pre><code class="js">console.log(1)</code></pre>`)
	assert.Contains(t, page, `<button class="copy-btn">Copy</button>`)
	assert.Contains(t, page, "Model: llama3-8b-8192")
}

func TestHTMLExporter_EscapesModelOutput(t *testing.T) {
	doc := sampleDoc()
	doc.Turns = []transcript.Turn{
		{Role: transcript.RoleAssistant, Text: "<script>alert('xss')</script>"},
		{Role: transcript.RoleAssistant, Text: "```<script>alert('xss')</script>\ncode here\n```"},
		{Role: transcript.RoleUser, Text: "<img src=x onerror=alert(1)>"},
	}
	doc.Model = "<b>model</b>"

	out, err := NewHTMLExporter().Export(doc)
	require.NoError(t, err)
	page := string(out)

	// The page's own copy script is the only script element.
	assert.Equal(t, 1, strings.Count(page, "<script>"))
	assert.NotContains(t, page, "<img")
	assert.NotContains(t, page, "<b>model</b>")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestHTMLExporter_DefaultsToDark(t *testing.T) {
	doc := sampleDoc()
	doc.Theme = ""

	out, err := NewHTMLExporter().Export(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<body class="dark-theme">`)
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter().Export(sampleDoc())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "model: llama3-8b-8192\n")
	assert.Contains(t, md, "turns: 2\n")
	assert.Contains(t, md, "### You\n\nHow do I print in JS?")
	assert.Contains(t, md, "### Assistant\n\nUse this:\n```js\nconsole.log(1)```")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"Test\nInjection: malicious"`, escapeYAML("Test\nInjection: malicious"))
	assert.Equal(t, `"a\\b"`, escapeYAML(`a\b`))
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := ToFile(sampleDoc(), NewHTMLExporter(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chat_20250304_050607.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "console.log(1)")

	path, err = ToFile(sampleDoc(), NewMarkdownExporter(), dir)
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(path))
}

func TestToFile_Empty(t *testing.T) {
	doc := sampleDoc()
	doc.Turns = nil

	_, err := ToFile(doc, NewHTMLExporter(), t.TempDir())
	assert.ErrorIs(t, err, ErrEmpty)
}
