// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports the transcript as Markdown.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Export converts the document to Markdown. Turn text is written as-is so
// fenced code blocks survive.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(doc.Title)))
	sb.WriteString(fmt.Sprintf("model: %s\n", escapeYAML(doc.Model)))
	sb.WriteString(fmt.Sprintf("exported: %s\n", doc.Exported.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("turns: %d\n", len(doc.Turns)))
	sb.WriteString("generator: quickchat\n")
	sb.WriteString("---\n\n")

	sb.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))

	for _, turn := range doc.Turns {
		sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel(turn.Role)))
		sb.WriteString(strings.TrimRight(turn.Text, "\n"))
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// escapeYAML quotes values containing YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
