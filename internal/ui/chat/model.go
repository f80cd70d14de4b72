// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/quickchat/internal/cloud"
	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/export"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/session"
	"github.com/jeranaias/quickchat/internal/transcript"
	"github.com/jeranaias/quickchat/internal/ui/components"
	"github.com/jeranaias/quickchat/internal/ui/styles"
)

// FallbackModels are offered by the model picker when the endpoint cannot
// list its models.
var FallbackModels = prefs.KnownModels

// listModelsTimeout bounds the model picker's fetch.
const listModelsTimeout = 10 * time.Second

// =============================================================================
// CHAT STATE
// =============================================================================

// Overlay is the modal layer drawn over the chat, if any.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayCredential
	OverlayModel
)

// ModelLister fetches the model ids the endpoint serves.
type ModelLister interface {
	ListModels(ctx context.Context, credential string) ([]string, error)
}

// Options configures the chat model.
type Options struct {
	Session *session.Session
	// Mode is shown in the status bar (direct or proxy).
	Mode string
	// Models is optional; without it the picker uses FallbackModels.
	Models ModelLister
	// ExportDir receives Ctrl+E exports.
	ExportDir string
	// PrefsChanged delivers external edits of the preference store.
	PrefsChanged <-chan struct{}
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	// WrapWidth caps bubble width; zero uses the terminal width.
	WrapWidth int
	// ShowHelp shows the key hints in the status bar.
	ShowHelp bool
	// Log records request outcomes at debug level.
	Log zerolog.Logger
	// Context is the parent of every request; defaults to Background.
	Context context.Context
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	sess  *session.Session
	opts  Options
	ctx   context.Context
	log   zerolog.Logger
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Components
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textarea.Model
	spinner  components.Spinner

	// Overlays
	overlay    Overlay
	keyInput   textinput.Model
	keyNotice  string
	modelInput textinput.Model
	models     []string

	// Request state
	busy     bool
	inflight *inflight

	// Copy control of the last assistant turn
	copy       transcript.CopyControl
	copyTurnID string

	// Status line notice
	notice    string
	noticeErr bool
	noticeID  int

	showFullHelp bool

	// Rendered turns keyed by turn ID and copy label; reset on resize and
	// theme change.
	rendered    map[string]string
	renderedLen int
}

// New creates the chat model. When the session has no credential the
// credential prompt is open from the start.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Mode == "" {
		opts.Mode = "direct"
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type a prompt. Enter sends, Alt+Enter adds a line."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	ki := textinput.New()
	ki.Prompt = "API key: "
	ki.Placeholder = "gsk_..."
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '*'

	mi := textinput.New()
	mi.Prompt = "Model: "
	mi.ShowSuggestions = true

	vp := viewport.New(80, 20)

	m := Model{
		sess:       opts.Session,
		opts:       opts,
		ctx:        ctx,
		log:        opts.Log,
		theme:      styles.NewTheme(opts.Session.Preferences().Theme),
		keys:       keys,
		help:       help.New(),
		viewport:   vp,
		input:      ta,
		spinner:    components.NewSpinner(),
		keyInput:   ki,
		modelInput: mi,
		models:     append([]string(nil), FallbackModels...),
		inflight:   &inflight{},
		rendered:   make(map[string]string),
	}
	m.modelInput.SetSuggestions(m.models)

	if m.sess.NeedsCredential() {
		m.openCredential("")
	}
	m.updateViewport()
	return m
}

// Init starts the cursor blink and the preference watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForPrefs(m.opts.PrefsChanged))
}

// Update handles every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case ResponseMsg:
		return m.handleResponse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		// Pick up the user turn appended by the running request.
		if m.sess.Transcript().Len() != m.renderedLen {
			m.updateViewport()
			m.viewport.GotoBottom()
		}
		return m, cmd

	case CopyRevertMsg:
		m.copy.Revert(msg.Token)
		m.updateViewport()
		return m, nil

	case ModelsMsg:
		if msg.Err != nil {
			if !errors.Is(msg.Err, cloud.ErrModelsUnavailable) {
				m.log.Warn().Err(msg.Err).Msg("model listing failed")
			}
			return m, nil
		}
		if len(msg.Models) > 0 {
			m.models = msg.Models
			m.modelInput.SetSuggestions(m.models)
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			return m.setNotice("Export failed: "+msg.Err.Error(), true)
		}
		return m.setNotice("Exported to "+msg.Path, false)

	case PrefsChangedMsg:
		return m.handlePrefsChanged()

	case NoticeExpiredMsg:
		if msg.ID == m.noticeID {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil
	}

	return m.forwardToInput(msg)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	m.input.SetWidth(max(m.width-2, 10))
	m.keyInput.Width = max(m.width/2, 20)
	m.modelInput.Width = max(m.width/2, 20)
	m.help.Width = m.width

	m.layout()
	m.rendered = make(map[string]string)
	m.updateViewport()
	return m, nil
}

// layout sizes the viewport to whatever the fixed rows leave.
func (m *Model) layout() {
	const (
		headerHeight  = 1
		spinnerHeight = 1
		statusHeight  = 1
		inputBorder   = 1
	)
	reserved := headerHeight + spinnerHeight + statusHeight + inputBorder + m.input.Height()
	if m.showFullHelp {
		reserved += len(m.keys.FullHelp()[0])
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-reserved, 1)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.inflight.stop()
		return m, tea.Quit
	}

	switch m.overlay {
	case OverlayCredential:
		return m.handleCredentialKey(msg)
	case OverlayModel:
		return m.handleModelKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Cancel):
		if m.busy {
			m.inflight.stop()
			return m.setNotice("Canceling request...", false)
		}
		if m.showFullHelp {
			m.showFullHelp = false
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.input.Reset()
		m.sess.Clear()
		m.copyTurnID = ""
		m.rendered = make(map[string]string)
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keys.Theme):
		return m.toggleTheme()

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastResponse()

	case key.Matches(msg, m.keys.Model):
		return m.openModelPicker()

	case key.Matches(msg, m.keys.Export):
		return m.exportTranscript()

	case key.Matches(msg, m.keys.ForgetKey):
		return m.forgetCredential()

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Help):
		m.showFullHelp = !m.showFullHelp
		m.layout()
		return m, nil
	}

	return m.forwardToInput(msg)
}

func (m Model) forwardToInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.overlay {
	case OverlayCredential:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case OverlayModel:
		m.modelInput, cmd = m.modelInput.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// SUBMISSION
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m.setNotice("Waiting for the current response...", false)
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()

	sess := m.sess
	return m.startRequest(func(ctx context.Context) session.Outcome {
		return sess.Submit(ctx, text)
	})
}

func (m Model) startRequest(run func(context.Context) session.Outcome) (tea.Model, tea.Cmd) {
	m.busy = true
	ctx := m.inflight.start(m.ctx)
	spin := m.spinner.Start(m.sess.Preferences().Model)
	return m, tea.Batch(
		func() tea.Msg { return ResponseMsg{Outcome: run(ctx)} },
		spin,
	)
}

func (m Model) handleResponse(msg ResponseMsg) (tea.Model, tea.Cmd) {
	out := msg.Outcome
	m.busy = false
	m.spinner.Stop()
	m.inflight.stop()

	m.log.Debug().Str("outcome", out.Kind.String()).Msg("submission finished")

	switch out.Kind {
	case session.NeedCredential:
		m.openCredential("")
	case session.Failed:
		// A new key cannot replace one injected through the environment;
		// the error turn says so instead.
		if errors.Is(out.Err, cloud.ErrInvalidCredential) && !m.sess.KeyFromEnvironment() {
			m.openCredential(session.InvalidCredentialMessage)
		}
	case session.Rejected:
		m.updateViewport()
		return m.setNotice(session.Describe(out.Err), true)
	}

	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// CREDENTIAL OVERLAY
// =============================================================================

func (m *Model) openCredential(notice string) {
	m.overlay = OverlayCredential
	m.keyNotice = notice
	m.keyInput.Reset()
	m.keyInput.Focus()
	m.input.Blur()
}

func (m *Model) closeOverlay() {
	m.overlay = OverlayNone
	m.keyInput.Blur()
	m.modelInput.Blur()
	m.input.Focus()
}

func (m Model) handleCredentialKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.sess.DeclineCredential()
		m.closeOverlay()
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyEnter:
		err := m.sess.AcceptCredential(m.keyInput.Value())
		if errors.Is(err, credential.ErrMissingCredential) {
			m.sess.DeclineCredential()
			m.closeOverlay()
			m.updateViewport()
			return m, nil
		}
		if err != nil {
			m.log.Error().Err(err).Msg("failed to store credential")
			m.keyNotice = "Error: " + err.Error()
			m.keyInput.Reset()
			return m, nil
		}
		m.closeOverlay()
		if m.sess.Pending() != "" {
			sess := m.sess
			return m.startRequest(sess.Resend)
		}
		return m.setNotice("API key saved", false)
	}
	return m.forwardToInput(msg)
}

func (m Model) forgetCredential() (tea.Model, tea.Cmd) {
	if m.sess.Proxy() {
		return m.setNotice("Proxy mode holds no key", false)
	}
	if err := m.sess.ForgetCredential(); err != nil {
		return m.setNotice("Could not remove key: "+err.Error(), true)
	}
	if m.sess.Credential().Source == credential.SourceEnv {
		return m.setNotice("Stored key removed; "+credential.Key+" from the environment still applies", false)
	}
	return m.setNotice("Stored key removed", false)
}

// =============================================================================
// MODEL PICKER
// =============================================================================

func (m Model) openModelPicker() (tea.Model, tea.Cmd) {
	m.overlay = OverlayModel
	m.modelInput.Reset()
	m.modelInput.Placeholder = m.sess.Preferences().Model
	m.modelInput.Focus()
	m.input.Blur()

	if m.opts.Models == nil {
		return m, textinput.Blink
	}
	lister := m.opts.Models
	cred := m.sess.Credential().Value
	parent := m.ctx
	return m, tea.Batch(textinput.Blink, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, listModelsTimeout)
		defer cancel()
		models, err := lister.ListModels(ctx, cred)
		return ModelsMsg{Models: models, Err: err}
	})
}

func (m Model) handleModelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeOverlay()
		return m, nil

	case tea.KeyEnter:
		choice := strings.TrimSpace(m.modelInput.Value())
		if choice == "" {
			choice = m.modelInput.CurrentSuggestion()
		}
		m.closeOverlay()
		if choice == "" {
			return m, nil
		}
		p, err := m.sess.SetModel(choice)
		if err != nil {
			return m.setNotice("Could not save model: "+err.Error(), true)
		}
		return m.setNotice("Model set to "+p.Model, false)
	}
	return m.forwardToInput(msg)
}

// matchingModels returns the known models containing the typed text.
func (m Model) matchingModels(limit int) []string {
	query := strings.ToLower(strings.TrimSpace(m.modelInput.Value()))
	var out []string
	for _, id := range m.models {
		if query == "" || strings.Contains(strings.ToLower(id), query) {
			out = append(out, id)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) toggleTheme() (tea.Model, tea.Cmd) {
	p, err := m.sess.ToggleTheme()
	if err != nil {
		return m.setNotice("Could not save theme: "+err.Error(), true)
	}
	m.applyTheme(p.Theme == m.theme.Name)
	return m, nil
}

// applyTheme swaps the theme when unchanged is false and redraws.
func (m *Model) applyTheme(unchanged bool) {
	if unchanged {
		return
	}
	m.theme = m.theme.Toggle()
	m.rendered = make(map[string]string)
	m.updateViewport()
}

// copyLastResponse copies the last assistant turn to the clipboard.
func (m Model) copyLastResponse() (tea.Model, tea.Cmd) {
	turn, ok := m.sess.Transcript().LastAssistant()
	if !ok {
		return m.setNotice("No response to copy", false)
	}
	if err := m.opts.Clipboard(turn.Text); err != nil {
		return m.setNotice("Failed to copy: "+err.Error(), true)
	}
	token := m.copy.Press()
	m.copyTurnID = turn.ID
	m.updateViewport()
	return m, copyRevertCmd(token)
}

func (m Model) exportTranscript() (tea.Model, tea.Cmd) {
	turns := m.sess.Transcript().Turns()
	if len(turns) == 0 {
		return m.setNotice("Nothing to export", false)
	}
	p := m.sess.Preferences()
	dir := m.opts.ExportDir
	return m, func() tea.Msg {
		doc := export.NewDocument(turns, p.Model, p.Theme)
		path, err := export.ToFile(doc, export.NewHTMLExporter(), dir)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func (m Model) handlePrefsChanged() (tea.Model, tea.Cmd) {
	before := m.sess.Preferences()
	if err := m.sess.Reload(); err != nil {
		m.log.Warn().Err(err).Msg("reload after preference change failed")
		return m, waitForPrefs(m.opts.PrefsChanged)
	}
	after := m.sess.Preferences()
	m.applyTheme(after.Theme == m.theme.Name)
	m.log.Debug().
		Str("model", after.Model).
		Str("theme", string(after.Theme)).
		Msg("preferences changed on disk")

	cmd := waitForPrefs(m.opts.PrefsChanged)
	if after.Model != before.Model {
		next, notice := m.setNotice("Model changed to "+after.Model, false)
		return next, tea.Batch(notice, cmd)
	}
	return m, cmd
}

func (m Model) setNotice(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.noticeID++
	m.notice = text
	m.noticeErr = isErr
	return m, noticeExpireCmd(m.noticeID)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Busy reports whether a request is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Overlay returns the open overlay.
func (m Model) Overlay() Overlay {
	return m.overlay
}

// InputValue returns the prompt text.
func (m Model) InputValue() string {
	return m.input.Value()
}

// Theme returns the active theme.
func (m Model) Theme() *styles.Theme {
	return m.theme
}

// Notice returns the status-line notice.
func (m Model) Notice() string {
	return m.notice
}

// CopyLabel returns the copy control label of the last assistant turn.
func (m Model) CopyLabel() string {
	return m.copy.Label()
}
