// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/transcript"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports the transcript as a self-contained HTML page.
type HTMLExporter struct {
	policy *bluemonday.Policy
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{policy: conversationPolicy()}
}

// conversationPolicy allows exactly the markup transcript.TurnHTML emits.
func conversationPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "pre", "code", "button")
	p.AllowAttrs("class").
		Matching(regexp.MustCompile(`^[A-Za-z0-9_+\- ]+$`)).
		OnElements("div", "pre", "code", "button")
	return p
}

// Export converts the document to HTML.
func (e *HTMLExporter) Export(doc Document) ([]byte, error) {
	var body strings.Builder
	for _, turn := range doc.Turns {
		body.WriteString("            ")
		body.WriteString(transcript.TurnHTML(turn))
		body.WriteString("\n")
	}
	// SECURITY: TurnHTML escapes before formatting; sanitizing again keeps
	// the page safe if that ever regresses.
	conversation := e.policy.Sanitize(body.String())

	theme := doc.Theme
	if theme == "" {
		theme = prefs.ThemeDark
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(doc.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"quickchat\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", doc.Exported.Format(time.RFC3339)))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", theme))
	sb.WriteString("    <div class=\"container\">\n")
	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(doc.Title)))
	sb.WriteString(fmt.Sprintf("            <p class=\"meta\">Model: %s &middot; %d turns</p>\n", html.EscapeString(doc.Model), len(doc.Turns)))
	sb.WriteString("        </header>\n")
	sb.WriteString("        <main class=\"conversation\">\n")
	sb.WriteString(conversation)
	sb.WriteString("        </main>\n")
	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from quickchat on %s</p>\n", doc.Exported.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(htmlScript)
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

const htmlCSS = `    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; line-height: 1.5; }
        .dark-theme { background: #1a1b26; color: #c0caf5; }
        .light-theme { background: #f5f5f5; color: #1f2328; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .header { margin-bottom: 24px; }
        .meta, .footer { opacity: 0.7; font-size: 0.9em; }
        .conversation { display: flex; flex-direction: column; gap: 12px; }
        .chat-bubble { position: relative; padding: 12px 16px; border-radius: 12px; white-space: pre-wrap; max-width: 85%; }
        .user-message { align-self: flex-end; background: #3d59a1; color: #fff; }
        .dark-theme .ai-message { background: #24283b; }
        .light-theme .ai-message { background: #fff; border: 1px solid #d0d7de; }
        .error-message { color: #f7768e; font-weight: 600; }
        pre { margin: 8px 0; padding: 12px; border-radius: 8px; overflow-x: auto; }
        .dark-theme pre { background: #16161e; }
        .light-theme pre { background: #f0f0f0; }
        code { font-family: "JetBrains Mono", Menlo, Consolas, monospace; font-size: 0.9em; }
        .copy-btn { position: absolute; top: 8px; right: 8px; padding: 2px 8px; border-radius: 6px; border: none; cursor: pointer; opacity: 0.8; }
        .footer { margin-top: 32px; text-align: center; }
    </style>
`

const htmlScript = `    <script>
        document.querySelectorAll('.copy-btn').forEach(function (btn) {
            btn.addEventListener('click', function () {
                var bubble = btn.parentElement.cloneNode(true);
                bubble.querySelector('.copy-btn').remove();
                navigator.clipboard.writeText(bubble.innerText).then(function () {
                    btn.textContent = 'Copied!';
                    setTimeout(function () { btn.textContent = 'Copy'; }, 2000);
                });
            });
        });
    </script>
`
