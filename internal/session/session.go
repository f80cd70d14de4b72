// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/quickchat/internal/cloud"
	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/transcript"
)

// InvalidCredentialMessage is shown after the endpoint rejects the key.
const InvalidCredentialMessage = "Error: Invalid API key. Enter a new one to continue."

// InvalidEnvCredentialMessage is shown when the rejected key came from the
// environment, which a newly entered key cannot override.
const InvalidEnvCredentialMessage = "Error: Invalid API key. " + credential.Key +
	" is set in the environment; unset or correct it and restart."

// ErrBusy is returned when a request is already in flight.
var ErrBusy = errors.New("a request is already in progress")

// Completer sends one prompt and returns the reply.
type Completer interface {
	Complete(ctx context.Context, prompt, model, credential string) (string, error)
}

// Deps are the collaborators of a Session.
type Deps struct {
	Prefs       *prefs.Store
	Credentials *credential.Provider
	Client      Completer
	Transcript  *transcript.Transcript // optional; a new one is created if nil
	Log         zerolog.Logger
}

// =============================================================================
// OUTCOME
// =============================================================================

// Kind classifies the result of a submission.
type Kind int

const (
	// Noop means the prompt was blank and nothing happened.
	Noop Kind = iota
	// Replied means an assistant turn was appended.
	Replied
	// Failed means an error turn was appended.
	Failed
	// NeedCredential means no credential is available; no request was made.
	NeedCredential
	// Rejected means the submission was refused (see Err).
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "noop"
	case Replied:
		return "replied"
	case Failed:
		return "failed"
	case NeedCredential:
		return "need-credential"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the result of Submit or Resend.
type Outcome struct {
	Kind Kind
	Turn transcript.Turn // the appended assistant or error turn
	Err  error
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the state of one run.
type Session struct {
	prefsStore  *prefs.Store
	credentials *credential.Provider
	client      Completer
	transcript  *transcript.Transcript
	log         zerolog.Logger

	mu         sync.RWMutex
	prefs      prefs.Preferences
	credential credential.Credential
	pending    string

	busy atomic.Bool
}

// New builds a session and loads preferences and the credential from the
// stores. A missing credential is not an error.
func New(deps Deps) (*Session, error) {
	if deps.Prefs == nil || deps.Credentials == nil || deps.Client == nil {
		return nil, errors.New("session: prefs, credentials and client are required")
	}
	tr := deps.Transcript
	if tr == nil {
		tr = transcript.New()
	}
	s := &Session{
		prefsStore:  deps.Prefs,
		credentials: deps.Credentials,
		client:      deps.Client,
		transcript:  tr,
		log:         deps.Log,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds preferences and the credential from the stores. The
// transcript is kept.
func (s *Session) Reload() error {
	p, err := s.prefsStore.Load()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	cred, err := s.credentials.Resolve()
	if err != nil && !errors.Is(err, credential.ErrMissingCredential) {
		return err
	}

	s.mu.Lock()
	s.prefs = p
	s.credential = cred
	s.mu.Unlock()

	s.log.Debug().
		Str("model", p.Model).
		Str("theme", string(p.Theme)).
		Str("credential", string(cred.Source)).
		Msg("session reloaded")
	return nil
}

// Preferences returns the current preferences.
func (s *Session) Preferences() prefs.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Credential returns the resolved credential, which may be absent.
func (s *Session) Credential() credential.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// NeedsCredential reports whether a key must be entered before sending.
// It is false in proxy mode.
func (s *Session) NeedsCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.credential.Present() && !s.credentials.Proxy()
}

// Proxy reports whether the session talks to a credential-holding proxy.
func (s *Session) Proxy() bool {
	return s.credentials.Proxy()
}

// Transcript returns the transcript.
func (s *Session) Transcript() *transcript.Transcript {
	return s.transcript
}

// Busy reports whether a request is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Pending returns the prompt waiting for a credential, if any.
func (s *Session) Pending() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// =============================================================================
// SUBMIT PIPELINE
// =============================================================================

// Submit sends prompt to the model. The prompt is trimmed and NFC
// normalized; a blank prompt is a no-op. The user turn is appended before
// the credential is checked, so a NeedCredential outcome leaves it in the
// transcript and Resend can complete it.
func (s *Session) Submit(ctx context.Context, prompt string) Outcome {
	prompt = norm.NFC.String(strings.TrimSpace(prompt))
	if prompt == "" {
		return Outcome{Kind: Noop}
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Outcome{Kind: Rejected, Err: ErrBusy}
	}
	defer s.busy.Store(false)

	s.transcript.AppendUser(prompt)
	return s.send(ctx, prompt)
}

// Resend completes the prompt that was left waiting for a credential.
func (s *Session) Resend(ctx context.Context) Outcome {
	s.mu.RLock()
	prompt := s.pending
	s.mu.RUnlock()
	if prompt == "" {
		return Outcome{Kind: Noop}
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Outcome{Kind: Rejected, Err: ErrBusy}
	}
	defer s.busy.Store(false)

	return s.send(ctx, prompt)
}

func (s *Session) send(ctx context.Context, prompt string) Outcome {
	s.mu.Lock()
	cred := s.credential
	model := s.prefs.Model
	if !cred.Present() && !s.credentials.Proxy() {
		s.pending = prompt
		s.mu.Unlock()
		return Outcome{Kind: NeedCredential, Err: credential.ErrMissingCredential}
	}
	s.pending = ""
	s.mu.Unlock()

	reply, err := s.client.Complete(ctx, prompt, model, cred.Value)
	if err != nil {
		if s.credentials.Proxy() {
			err = proxyFailure(err)
		}
		return s.fail(err, cred.Source)
	}

	turn := s.transcript.AppendAssistant(reply)
	return Outcome{Kind: Replied, Turn: turn}
}

func (s *Session) fail(err error, source credential.Source) Outcome {
	s.log.Warn().Err(err).Msg("completion failed")

	text := Describe(err)
	if errors.Is(err, cloud.ErrInvalidCredential) {
		if ierr := s.ForgetCredential(); ierr != nil {
			s.log.Error().Err(ierr).Msg("failed to clear rejected credential")
		}
		if source == credential.SourceEnv {
			text = InvalidEnvCredentialMessage
		}
	}

	turn := s.transcript.AppendError(text)
	return Outcome{Kind: Failed, Turn: turn, Err: err}
}

// proxyFailure turns a 401 from a proxy into an ordinary request failure.
// The proxy holds the key, so there is nothing for the client to forget or
// ask for; the body is shown as-is.
func proxyFailure(err error) error {
	var reqErr *cloud.RequestError
	if errors.As(err, &reqErr) && errors.Is(reqErr.Err, cloud.ErrInvalidCredential) {
		return &cloud.RequestError{Status: reqErr.Status, Body: reqErr.Body}
	}
	return err
}

// KeyFromEnvironment reports whether the credential in use was injected
// through the environment. Entering a key does not replace it.
func (s *Session) KeyFromEnvironment() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential.Source == credential.SourceEnv
}

// Describe renders err as the inline text of an error turn.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, credential.ErrMissingCredential):
		return credential.MissingMessage
	case errors.Is(err, cloud.ErrInvalidCredential):
		return InvalidCredentialMessage
	case errors.Is(err, context.Canceled):
		return "Error: request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Error: request timed out"
	default:
		return "Error: " + err.Error()
	}
}

// =============================================================================
// STATE CHANGES
// =============================================================================

// SetModel persists a new model. A blank name restores the default.
func (s *Session) SetModel(model string) (prefs.Preferences, error) {
	p, err := s.prefsStore.SetModel(model)
	if err != nil {
		return s.Preferences(), err
	}
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return p, nil
}

// ToggleTheme flips and persists the theme.
func (s *Session) ToggleTheme() (prefs.Preferences, error) {
	p, err := s.prefsStore.ToggleTheme()
	if err != nil {
		return s.Preferences(), err
	}
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return p, nil
}

// AcceptCredential stores a user-entered key and reloads.
func (s *Session) AcceptCredential(raw string) error {
	if _, err := s.credentials.Accept(raw); err != nil {
		return err
	}
	return s.Reload()
}

// DeclineCredential records a canceled prompt: the pending prompt is
// dropped and the missing-key message is appended.
func (s *Session) DeclineCredential() transcript.Turn {
	s.mu.Lock()
	s.pending = ""
	s.mu.Unlock()
	return s.transcript.AppendError(credential.MissingMessage)
}

// ForgetCredential removes the stored credential. An environment value
// survives and is resolved again.
func (s *Session) ForgetCredential() error {
	err := s.credentials.Invalidate()
	cred, rerr := s.credentials.Resolve()
	if rerr != nil && !errors.Is(rerr, credential.ErrMissingCredential) {
		err = errors.Join(err, rerr)
	}
	s.mu.Lock()
	s.credential = cred
	s.mu.Unlock()
	return err
}

// Clear empties the transcript and drops any pending prompt.
func (s *Session) Clear() {
	s.mu.Lock()
	s.pending = ""
	s.mu.Unlock()
	s.transcript.Clear()
}
