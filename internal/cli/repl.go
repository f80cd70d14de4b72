// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/quickchat/internal/cloud"
	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/export"
	"github.com/jeranaias/quickchat/internal/session"
)

// historyFileName lives in the config directory.
const historyFileName = "repl_history"

// lineEditor is the part of liner.State the REPL uses.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
}

// =============================================================================
// REPL COMMAND
// =============================================================================

// HandleReplCommand runs the line-mode chat until EOF, Ctrl+C at the prompt,
// or /quit. Ctrl+C while a request is in flight cancels only that request.
func HandleReplCommand(ctx context.Context, rt *Runtime, args Args, s Streams) error {
	if err := RequiresTTY("start the REPL"); err != nil {
		return err
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	history := historyFile(rt.Config)
	loadHistory(line, history)
	defer func() {
		saveHistory(line, history)
		line.Close()
	}()

	r := newREPL(rt, line, s.Out, args.Plain)
	r.interrupt = true
	return r.Run(ctx)
}

// REPL is a line-mode chat over a Session.
type REPL struct {
	rt    *Runtime
	line  lineEditor
	out   io.Writer
	plain bool

	// interrupt installs a SIGINT handler around each request.
	interrupt bool
}

func newREPL(rt *Runtime, line lineEditor, out io.Writer, plain bool) *REPL {
	return &REPL{rt: rt, line: line, out: out, plain: plain}
}

// Run reads prompts until the user leaves.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	for {
		input, err := r.line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return NewCommandError("repl", "read", "cannot read input", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.command(ctx, input); quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.submit(ctx, input)
	}
}

func (r *REPL) banner() {
	p := r.rt.Session.Preferences()
	fmt.Fprintf(r.out, "%s %s\n",
		TitleStyle.Render("quickchat"),
		DimStyle.Render(fmt.Sprintf("model %s | /help for commands | Ctrl+D to exit", p.Model)))
}

// =============================================================================
// REQUESTS
// =============================================================================

func (r *REPL) submit(ctx context.Context, prompt string) {
	if r.interrupt {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	fmt.Fprintln(r.out, DimStyle.Render("Generating response..."))
	r.show(ctx, r.rt.Session.Submit(ctx, prompt))
}

// show prints an outcome. A missing key is asked for in place and the
// waiting prompt is sent once it is accepted.
func (r *REPL) show(ctx context.Context, outcome session.Outcome) {
	for {
		switch outcome.Kind {
		case session.Replied:
			fmt.Fprint(r.out, renderReply(r.out, outcome.Turn.Text, r.rt.Session.Preferences().Theme, r.plain))

		case session.Failed:
			fmt.Fprintln(r.out, ErrorStyle.Render(outcome.Turn.Text))
			if errors.Is(outcome.Err, cloud.ErrInvalidCredential) && !r.rt.Session.KeyFromEnvironment() {
				r.askKey()
			}

		case session.NeedCredential:
			if !r.askKey() {
				turn := r.rt.Session.DeclineCredential()
				fmt.Fprintln(r.out, ErrorStyle.Render(turn.Text))
				return
			}
			outcome = r.rt.Session.Resend(ctx)
			continue

		case session.Rejected:
			fmt.Fprintln(r.out, ErrorStyle.Render("Error: "+outcome.Err.Error()))
		}
		return
	}
}

// askKey prompts for a key with echo disabled. It reports whether a key
// was accepted.
func (r *REPL) askKey() bool {
	fmt.Fprintf(r.out, "Enter a Groq API key (get one at %s), or leave blank to cancel.\n", credential.KeyURL)
	key, err := r.line.PasswordPrompt("API key: ")
	if err != nil || strings.TrimSpace(key) == "" {
		return false
	}
	if err := r.rt.Session.AcceptCredential(key); err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("Error: "+err.Error()))
		return false
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("[OK]")+" key saved")
	return true
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /model [id]       show or set the model
  /theme            toggle dark/light
  /clear            clear the conversation
  /key              forget the stored API key
  /export [md|html] save the conversation
  /help             show this help
  /quit             leave
`

// command runs a slash command and reports whether to quit.
func (r *REPL) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, rest := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		fmt.Fprint(r.out, replHelp)

	case "/clear":
		r.rt.Session.Clear()
		fmt.Fprintln(r.out, DimStyle.Render("conversation cleared"))

	case "/theme":
		p, err := r.rt.Session.ToggleTheme()
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "theme: %s\n", p.Theme)

	case "/model":
		if len(rest) == 0 {
			fmt.Fprintf(r.out, "model: %s\n", r.rt.Session.Preferences().Model)
			return false
		}
		p, err := r.rt.Session.SetModel(rest[0])
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "model: %s\n", p.Model)

	case "/key":
		if err := r.rt.Session.ForgetCredential(); err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintln(r.out, "stored key removed")

	case "/export":
		r.export(rest)

	default:
		fmt.Fprintf(r.out, "unknown command %s (try /help)\n", name)
	}
	return false
}

func (r *REPL) export(rest []string) {
	var exporter export.Exporter = export.NewMarkdownExporter()
	if len(rest) > 0 && strings.EqualFold(rest[0], "html") {
		exporter = export.NewHTMLExporter()
	}

	dir, err := r.rt.ExportDir()
	if err != nil {
		r.fail(err)
		return
	}
	p := r.rt.Session.Preferences()
	doc := export.NewDocument(r.rt.Session.Transcript().Turns(), p.Model, p.Theme)
	path, err := export.ToFile(doc, exporter, dir)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "exported to %s\n", path)
}

func (r *REPL) fail(err error) {
	fmt.Fprintln(r.out, ErrorStyle.Render("Error: "+err.Error()))
}

// =============================================================================
// HISTORY
// =============================================================================

// historyFile is where typed input lines are kept, or "" when
// ui.repl_history is off. Only input lines go there, never replies.
func historyFile(cfg *config.Config) string {
	if cfg == nil || !cfg.UI.ReplHistory {
		return ""
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, historyFileName)
}

func loadHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

// saveHistory persists history.
// SECURITY: 0600, prompts may contain private text.
func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
