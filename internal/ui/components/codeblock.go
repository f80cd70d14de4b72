// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/quickchat/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced code span ready to render.
type CodeBlock struct {
	Language    string
	Code        string
	MaxWidth    int
	LineNumbers bool
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render renders the code block with the theme's syntax style.
func (c CodeBlock) Render(theme *styles.Theme) string {
	code := strings.Trim(c.Code, "\n")

	highlighted := highlightCode(code, c.Language, theme)
	lines := strings.Split(highlighted, "\n")

	if c.LineNumbers {
		for i, line := range lines {
			lines[i] = theme.CodeLineNum.Render(strconv.Itoa(i+1)) + line
		}
	}
	body := strings.Join(lines, "\n")

	if c.Language != "" {
		body = theme.CodeLangBadge.Render(c.Language) + "\n" + body
	}

	maxWidth := c.MaxWidth
	if maxWidth < 20 {
		maxWidth = 20
	}
	return theme.CodeBlock.MaxWidth(maxWidth).Render(body)
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode returns ANSI-highlighted code, or code unchanged when
// highlighting fails.
func highlightCode(code, language string, theme *styles.Theme) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(theme.Palette.SyntaxStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatterName := "terminal256"
	if theme.HasTrueColor() {
		formatterName = "terminal16m"
	}
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
