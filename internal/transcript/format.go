// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// fencePattern matches a closed ``` fence with an optional language tag.
// The tag charset is restricted so it is safe inside a class attribute.
var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)\n?(.*?)```")

// FormatHTML escapes text and rewrites fenced code blocks into
// <pre><code class="LANG">...</code></pre>. The class attribute is omitted
// when the fence has no language tag.
func FormatHTML(text string) string {
	escaped := html.EscapeString(text)
	return fencePattern.ReplaceAllStringFunc(escaped, func(match string) string {
		parts := fencePattern.FindStringSubmatch(match)
		lang, code := parts[1], parts[2]
		if lang == "" {
			return "<pre><code>" + code + "</code></pre>"
		}
		return fmt.Sprintf(`<pre><code class="%s">%s</code></pre>`, lang, code)
	})
}

// TurnHTML renders one turn as a chat bubble.
func TurnHTML(turn Turn) string {
	var sb strings.Builder
	switch turn.Role {
	case RoleUser:
		sb.WriteString(`<div class="message user-message chat-bubble">`)
		sb.WriteString(html.EscapeString(turn.Text))
		sb.WriteString(`</div>`)
	case RoleAssistant:
		sb.WriteString(`<div class="message ai-message chat-bubble">`)
		sb.WriteString(FormatHTML(turn.Text))
		sb.WriteString(`<button class="copy-btn">`)
		sb.WriteString(CopyLabel)
		sb.WriteString(`</button></div>`)
	default:
		sb.WriteString(`<div class="message error-message">`)
		sb.WriteString(html.EscapeString(turn.Text))
		sb.WriteString(`</div>`)
	}
	return sb.String()
}

// SegmentKind distinguishes prose from code.
type SegmentKind int

const (
	SegmentProse SegmentKind = iota
	SegmentCode
)

// Segment is a run of prose or a fenced code block.
type Segment struct {
	Kind SegmentKind
	Lang string
	Text string
}

// Segments splits raw text into prose and code using the same fence rule
// as FormatHTML. Empty prose runs are dropped. An unclosed fence stays prose.
func Segments(text string) []Segment {
	var out []Segment
	last := 0
	for _, loc := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
		if prose := text[last:loc[0]]; strings.TrimSpace(prose) != "" {
			out = append(out, Segment{Kind: SegmentProse, Text: prose})
		}
		out = append(out, Segment{
			Kind: SegmentCode,
			Lang: text[loc[2]:loc[3]],
			Text: strings.TrimSuffix(text[loc[4]:loc[5]], "\n"),
		})
		last = loc[1]
	}
	if prose := text[last:]; strings.TrimSpace(prose) != "" {
		out = append(out, Segment{Kind: SegmentProse, Text: prose})
	}
	return out
}
