// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/jeranaias/quickchat/internal/cloud"
	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/credential"
	"github.com/jeranaias/quickchat/internal/prefs"
	"github.com/jeranaias/quickchat/internal/storage"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeAPI is a completions endpoint that records what it saw.
type fakeAPI struct {
	mu       sync.Mutex
	status   int
	reply    string
	models   []string
	requests []cloud.ChatRequest
	auth     []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auth = append(f.auth, r.Header.Get("Authorization"))
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		io.WriteString(w, `{"error":{"message":"rejected"}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, "/models") {
		data := make([]map[string]string, 0, len(f.models))
		for _, m := range f.models {
			data = append(data, map[string]string{"id": m})
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
		return
	}

	var req cloud.ChatRequest
	json.NewDecoder(r.Body).Decode(&req)
	f.requests = append(f.requests, req)
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]string{"role": "assistant", "content": f.reply},
		}},
	})
}

func (f *fakeAPI) setStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeAPI) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *fakeAPI) sent() []cloud.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cloud.ChatRequest(nil), f.requests...)
}

type fixture struct {
	api *fakeAPI
	kv  *storage.MemoryStore
	rt  *Runtime
	out *bytes.Buffer
	err *bytes.Buffer
}

// newFixture wires a Runtime against a fake endpoint. envKey is the value
// of GROQ_API_KEY ("" for none).
func newFixture(t *testing.T, envKey string, opts ...func(*RuntimeOptions)) *fixture {
	t.Helper()
	t.Setenv(config.HomeEnvVar, t.TempDir())

	api := &fakeAPI{reply: "Hello **there**", models: []string{"llama3-70b-8192", "llama3-8b-8192"}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Endpoint.URL = srv.URL + "/openai/v1/chat/completions"
	cfg.Endpoint.RequestsPerMinute = 0
	cfg.Storage.Backend = config.BackendMemory
	cfg.Credential.Store = config.CredentialStore

	kv := storage.NewMemoryStore()
	ro := RuntimeOptions{
		Config: cfg,
		Log:    zerolog.Nop(),
		Store:  kv,
		Credentials: credential.NewProvider(credential.Options{
			Env:     func(string) string { return envKey },
			Durable: kv,
			Session: storage.NewMemoryStore(),
		}),
	}
	for _, o := range opts {
		o(&ro)
	}

	rt, err := NewRuntime(ro)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })

	return &fixture{api: api, kv: kv, rt: rt, out: &bytes.Buffer{}, err: &bytes.Buffer{}}
}

func (f *fixture) streams(in string) Streams {
	return Streams{In: strings.NewReader(in), Out: f.out, Err: f.err}
}

func keyFrom(value string) credential.Prompter {
	return credential.PrompterFunc(func(context.Context) (string, error) { return value, nil })
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		want  Command
		check func(t *testing.T, a Args)
	}{
		{"no args starts the TUI", nil, CmdTUI, nil},
		{"ask joins the prompt", []string{"ask", "hello", "world"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "hello world", a.Query)
		}},
		{"model flag before command", []string{"-m", "gemma-7b-it", "ask", "hi"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "gemma-7b-it", a.Model)
			assert.Equal(t, "hi", a.Query)
		}},
		{"model flag after command", []string{"ask", "--model=mixtral-8x7b-32768", "hi"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "mixtral-8x7b-32768", a.Model)
			assert.Equal(t, "hi", a.Query)
		}},
		{"double dash keeps dashes in the prompt", []string{"ask", "--", "-v", "means?"}, CmdAsk, func(t *testing.T, a Args) {
			assert.False(t, a.Verbose)
			assert.Equal(t, "-v means?", a.Query)
		}},
		{"repl", []string{"repl", "--plain"}, CmdRepl, func(t *testing.T, a Args) {
			assert.True(t, a.Plain)
		}},
		{"key defaults to status", []string{"key"}, CmdKey, func(t *testing.T, a Args) {
			assert.Equal(t, "status", a.Subcommand)
		}},
		{"key set with value", []string{"key", "set", "gsk_abc"}, CmdKey, func(t *testing.T, a Args) {
			assert.Equal(t, "set", a.Subcommand)
			assert.Equal(t, "gsk_abc", a.ConfigVal)
		}},
		{"models pick", []string{"models", "--pick"}, CmdModels, func(t *testing.T, a Args) {
			assert.True(t, a.Pick)
		}},
		{"config defaults to show", []string{"config"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{"config set", []string{"config", "set", "endpoint.url", "https://x.test/v1/chat/completions"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "set", a.Subcommand)
			assert.Equal(t, "endpoint.url", a.ConfigKey)
			assert.Equal(t, "https://x.test/v1/chat/completions", a.ConfigVal)
		}},
		{"theme", []string{"theme"}, CmdTheme, nil},
		{"version flag", []string{"--version"}, CmdVersion, nil},
		{"help flag", []string{"-h"}, CmdHelp, nil},
		{"verbose", []string{"-v", "models"}, CmdModels, func(t *testing.T, a Args) {
			assert.True(t, a.Verbose)
		}},
		{"unknown word starts the TUI", []string{"hello"}, CmdTUI, func(t *testing.T, a Args) {
			assert.Equal(t, []string{"hello"}, a.Raw)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.args)
			assert.Equal(t, tt.want, cmd, "command %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "ask", CmdAsk.String())
	assert.Equal(t, "tui", CmdTUI.String())
	assert.Equal(t, "unknown", Command(99).String())
}

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"set", "--store", "keyring", "--force", "--level=debug", "extra", "--dry-run=false"})

	assert.Equal(t, "set", p.Subcommand())
	assert.Equal(t, "keyring", p.Flag("store"))
	assert.Equal(t, "debug", p.Flag("level"))
	assert.True(t, p.BoolFlag("force"))
	assert.False(t, p.BoolFlag("dry-run"))
	assert.Equal(t, 2, p.PositionalCount())
	assert.Equal(t, "extra", p.Positional(1))
	assert.Equal(t, "", p.Positional(5))
	assert.Equal(t, []string{"extra"}, p.PositionalFrom(1))
	assert.Nil(t, p.PositionalFrom(9))
}

func TestArgParser_Empty(t *testing.T) {
	p := NewArgParser(nil)
	assert.Equal(t, "", p.Subcommand())
	assert.False(t, p.BoolFlag("anything"))
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", ErrMissingArgument("prompt", "quickchat ask"), ExitUsageError},
		{"no tty", &TTYRequiredError{Operation: "pick"}, ExitUsageError},
		{"missing key", NewCommandError("ask", "authenticate", "no key", credential.ErrMissingCredential), ExitAuthError},
		{"rejected key", fmt.Errorf("send: %w", cloud.ErrInvalidCredential), ExitAuthError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"canceled", context.Canceled, ExitCanceled},
		{"net timeout", timeoutErr{}, ExitTimeoutError},
		{"transport", &cloud.RequestError{Err: errors.New("connection refused")}, ExitNetworkError},
		{"config", NewCommandError("config", "set", "bad", nil), ExitConfigError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("disk full")
	err := NewCommandError("key", "set", "key not stored", inner)
	assert.Equal(t, "key set failed: key not stored: disk full", err.Error())
	assert.ErrorIs(t, err, inner)

	assert.Equal(t, "config show failed: bad", NewCommandError("config", "show", "bad", nil).Error())
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, errors.New("boom"))
	assert.Contains(t, buf.String(), "[ERROR] boom")

	buf.Reset()
	DisplayError(&buf, nil)
	assert.Empty(t, buf.String())
}

// =============================================================================
// RUNTIME TESTS (runtime.go)
// =============================================================================

func TestNewRuntime_RequiresConfig(t *testing.T) {
	_, err := NewRuntime(RuntimeOptions{})
	assert.Error(t, err)
}

func TestNewRuntime_OpensConfiguredStore(t *testing.T) {
	t.Setenv(config.HomeEnvVar, t.TempDir())
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Credential.Store = config.CredentialSession

	rt, err := NewRuntime(RuntimeOptions{Config: cfg, Log: zerolog.Nop()})
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Session.SetModel("gemma-7b-it")
	require.NoError(t, err)
	v, ok, err := rt.Store.Get(prefs.KeyModel)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemma-7b-it", v)
}

func TestNewRuntime_StartsWithoutSecretService(t *testing.T) {
	keyring.MockInitWithError(errors.New("org.freedesktop.secrets was not provided"))
	t.Cleanup(keyring.MockInit)
	t.Setenv(config.HomeEnvVar, t.TempDir())
	t.Setenv(credential.Key, "")

	// Default config: keyring credential store.
	rt, err := NewRuntime(RuntimeOptions{Config: config.Default(), Log: zerolog.Nop()})
	require.NoError(t, err)
	defer rt.Close()
	assert.True(t, rt.Session.NeedsCredential())

	var out bytes.Buffer
	s := Streams{Out: &out, Err: io.Discard}
	require.NoError(t, HandleKeyCommand(context.Background(), rt, Args{Subcommand: "status"}, s))
	assert.Contains(t, out.String(), "not set")

	require.NoError(t, HandleThemeCommand(rt, &out))
	require.NoError(t, HandleConfigCommand(rt, Args{Subcommand: "set", ConfigKey: "credential.store", ConfigVal: "store"}, &out))

	// An entered key still works for this run.
	require.NoError(t, rt.Session.AcceptCredential("gsk_this_run"))
	assert.False(t, rt.Session.NeedsCredential())
	assert.Equal(t, credential.SourceSession, rt.Session.Credential().Source)
}

func TestNewRuntime_ModelOverrideIsNotPersisted(t *testing.T) {
	f := newFixture(t, "test-key", func(o *RuntimeOptions) { o.Model = "gemma2-9b-it" })

	require.NoError(t, HandleAskCommand(context.Background(), f.rt, Args{Query: "hi"}, f.streams("")))

	sent := f.api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "gemma2-9b-it", sent[0].Model)
	assert.Equal(t, prefs.DefaultModel, f.rt.Session.Preferences().Model)
}

// =============================================================================
// ASK TESTS (ask.go)
// =============================================================================

func TestAsk_PrintsPlainReplyWhenPiped(t *testing.T) {
	f := newFixture(t, "test-key")

	err := HandleAskCommand(context.Background(), f.rt, Args{Query: "  say hello  "}, f.streams(""))
	require.NoError(t, err)

	assert.Equal(t, "Hello **there**\n", f.out.String())
	sent := f.api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "say hello", sent[0].Messages[len(sent[0].Messages)-1].Content)
	assert.Equal(t, "Bearer test-key", f.api.authHeaders()[0])
}

func TestAsk_ReadsPromptFromStdin(t *testing.T) {
	f := newFixture(t, "test-key")

	require.NoError(t, HandleAskCommand(context.Background(), f.rt, Args{}, f.streams("explain this diff\n")))

	sent := f.api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "explain this diff", sent[0].Messages[len(sent[0].Messages)-1].Content)
}

func TestAsk_EmptyPromptIsUsageError(t *testing.T) {
	f := newFixture(t, "test-key")

	err := HandleAskCommand(context.Background(), f.rt, Args{}, f.streams("   "))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Empty(t, f.api.sent())
}

func TestAsk_MissingKeyWithoutPromptSendsNothing(t *testing.T) {
	f := newFixture(t, "")

	err := HandleAskCommand(context.Background(), f.rt, Args{Query: "hi"}, f.streams(""))
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Contains(t, err.Error(), credential.KeyURL)
	assert.Empty(t, f.api.sent())
}

func TestAsk_PromptsForMissingKey(t *testing.T) {
	f := newFixture(t, "")
	s := f.streams("")
	s.KeyPrompter = keyFrom("  gsk_entered  ")

	require.NoError(t, HandleAskCommand(context.Background(), f.rt, Args{Query: "hi"}, s))

	stored, ok, _ := f.kv.Get(credential.Key)
	assert.True(t, ok)
	assert.Equal(t, "gsk_entered", stored)
	assert.Equal(t, "Bearer gsk_entered", f.api.authHeaders()[0])
}

func TestAsk_RejectedKeyIsForgotten(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.kv.Set(credential.Key, "gsk_revoked"))
	require.NoError(t, f.rt.Session.Reload())
	f.api.setStatus(http.StatusUnauthorized)

	err := HandleAskCommand(context.Background(), f.rt, Args{Query: "hi"}, f.streams(""))
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Contains(t, err.Error(), "Invalid API key")

	_, ok, _ := f.kv.Get(credential.Key)
	assert.False(t, ok)
	assert.True(t, f.rt.Session.NeedsCredential())
}

func TestAsk_ServerErrorBodySurfaces(t *testing.T) {
	f := newFixture(t, "test-key")
	f.api.setStatus(http.StatusBadRequest)

	err := HandleAskCommand(context.Background(), f.rt, Args{Query: "hi"}, f.streams(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

func TestRenderReply_PlainForBuffers(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "# Title\n", renderReply(&buf, "# Title", prefs.ThemeDark, false))
	assert.Equal(t, "x\n", renderReply(&buf, "x\n", prefs.ThemeLight, true))
}

// =============================================================================
// REPL TESTS (repl.go)
// =============================================================================

// scriptedLine replays canned input.
type scriptedLine struct {
	inputs    []string
	passwords []string
	history   []string
}

func (s *scriptedLine) Prompt(string) (string, error) {
	if len(s.inputs) == 0 {
		return "", io.EOF
	}
	in := s.inputs[0]
	s.inputs = s.inputs[1:]
	return in, nil
}

func (s *scriptedLine) PasswordPrompt(string) (string, error) {
	if len(s.passwords) == 0 {
		return "", liner.ErrPromptAborted
	}
	pw := s.passwords[0]
	s.passwords = s.passwords[1:]
	return pw, nil
}

func (s *scriptedLine) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func runREPL(t *testing.T, f *fixture, line *scriptedLine) string {
	t.Helper()
	r := newREPL(f.rt, line, f.out, true)
	require.NoError(t, r.Run(context.Background()))
	return f.out.String()
}

func TestREPL_SendsPromptsAndPrintsReplies(t *testing.T) {
	f := newFixture(t, "test-key")
	line := &scriptedLine{inputs: []string{"first", "", "second"}}

	out := runREPL(t, f, line)

	assert.Equal(t, 2, strings.Count(out, "Hello **there**"))
	assert.Len(t, f.api.sent(), 2)
	assert.Equal(t, []string{"first", "second"}, line.history)
	assert.Equal(t, 4, f.rt.Session.Transcript().Len())
}

func TestHistoryFile_OffByDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.HomeEnvVar, dir)
	cfg := config.Default()

	assert.Empty(t, historyFile(cfg), "input history is opt-in")
	assert.Empty(t, historyFile(nil))

	require.NoError(t, cfg.Set("ui.repl_history", "true"))
	assert.Equal(t, filepath.Join(dir, historyFileName), historyFile(cfg))
}

func TestREPL_AsksForKeyAndResends(t *testing.T) {
	f := newFixture(t, "")
	line := &scriptedLine{inputs: []string{"hello"}, passwords: []string{"gsk_new"}}

	out := runREPL(t, f, line)

	assert.Contains(t, out, credential.KeyURL)
	assert.Contains(t, out, "Hello **there**")
	sent := f.api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Messages[len(sent[0].Messages)-1].Content)
	assert.Equal(t, "Bearer gsk_new", f.api.authHeaders()[0])
}

func TestREPL_RejectedEnvironmentKeyDoesNotAskForKey(t *testing.T) {
	f := newFixture(t, "gsk_env_bad")
	f.api.setStatus(http.StatusUnauthorized)
	line := &scriptedLine{inputs: []string{"hello"}, passwords: []string{"gsk_unused"}}

	out := runREPL(t, f, line)

	assert.Contains(t, out, credential.Key+" is set in the environment")
	assert.NotContains(t, out, "Enter a Groq API key")
	assert.Len(t, line.passwords, 1, "no password prompt")
}

func TestREPL_DeclinedKeyShowsMissingMessage(t *testing.T) {
	f := newFixture(t, "")
	line := &scriptedLine{inputs: []string{"hello"}}

	out := runREPL(t, f, line)

	assert.Contains(t, out, credential.MissingMessage)
	assert.Empty(t, f.api.sent())
	assert.Empty(t, f.rt.Session.Pending())
}

func TestREPL_SlashCommands(t *testing.T) {
	f := newFixture(t, "test-key")
	line := &scriptedLine{inputs: []string{
		"/model gemma-7b-it",
		"/model",
		"/theme",
		"hello",
		"/export md",
		"/clear",
		"/bogus",
		"/help",
		"/quit",
		"never sent",
	}}

	out := runREPL(t, f, line)

	assert.Equal(t, "gemma-7b-it", f.rt.Session.Preferences().Model)
	assert.Equal(t, prefs.ThemeLight, f.rt.Session.Preferences().Theme)
	assert.Contains(t, out, "model: gemma-7b-it")
	assert.Contains(t, out, "theme: light")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "/export [md|html]")
	assert.Equal(t, 0, f.rt.Session.Transcript().Len())

	sent := f.api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "gemma-7b-it", sent[0].Model)

	dir, err := f.rt.ExportDir()
	require.NoError(t, err)
	files, err := filepath.Glob(filepath.Join(dir, "chat_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello **there**")
}

func TestREPL_ExportEmptyTranscript(t *testing.T) {
	f := newFixture(t, "test-key")
	out := runREPL(t, f, &scriptedLine{inputs: []string{"/export html"}})
	assert.Contains(t, out, "transcript is empty")
}

func TestREPL_ForgetKey(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.kv.Set(credential.Key, "gsk_old"))
	require.NoError(t, f.rt.Session.Reload())

	out := runREPL(t, f, &scriptedLine{inputs: []string{"/key"}})

	assert.Contains(t, out, "stored key removed")
	assert.True(t, f.rt.Session.NeedsCredential())
}

// =============================================================================
// KEY COMMAND TESTS (key_cmd.go)
// =============================================================================

func TestKey_StatusMissing(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "status"}, f.streams("")))
	assert.Contains(t, f.out.String(), "not set")
	assert.Contains(t, f.out.String(), credential.KeyURL)
}

func TestKey_StatusRedacts(t *testing.T) {
	f := newFixture(t, "gsk_abcdefghijkl1234")
	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "status"}, f.streams("")))

	out := f.out.String()
	assert.Contains(t, out, "****1234")
	assert.Contains(t, out, string(credential.SourceEnv))
	assert.NotContains(t, out, "abcdefgh")
}

func TestKey_SetFromStdinThenClear(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "set"}, f.streams("gsk_piped_key\n")))
	v, ok, _ := f.kv.Get(credential.Key)
	require.True(t, ok)
	assert.Equal(t, "gsk_piped_key", v)
	assert.Empty(t, f.err.String())

	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "clear"}, f.streams("")))
	_, ok, _ = f.kv.Get(credential.Key)
	assert.False(t, ok)
}

func TestKey_SetFromArgumentWarns(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "set", ConfigVal: "gsk_arg"}, f.streams("")))
	assert.Contains(t, f.err.String(), "shell history")
}

func TestKey_SetWithPrompter(t *testing.T) {
	f := newFixture(t, "")
	s := Streams{In: nil, Out: f.out, Err: f.err, KeyPrompter: keyFrom("gsk_typed")}

	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "set"}, s))
	v, _, _ := f.kv.Get(credential.Key)
	assert.Equal(t, "gsk_typed", v)
}

func TestKey_SetCanceled(t *testing.T) {
	f := newFixture(t, "")
	s := Streams{Out: f.out, Err: f.err, KeyPrompter: credential.PrompterFunc(func(context.Context) (string, error) {
		return "", credential.ErrPromptCanceled
	})}

	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "set"}, s))
	assert.Contains(t, f.out.String(), "canceled")
	assert.Equal(t, 0, f.kv.Len())
}

func TestKey_ClearKeepsEnvironmentKey(t *testing.T) {
	f := newFixture(t, "gsk_env")
	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "clear"}, f.streams("")))
	assert.Contains(t, f.out.String(), "still set in the environment")
}

func TestKey_ProxyMode(t *testing.T) {
	f := newFixture(t, "", func(o *RuntimeOptions) {
		o.Config.Endpoint.Mode = config.ModeProxy
		o.Credentials = credential.NewProvider(credential.Options{Proxy: true})
	})

	require.NoError(t, HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "status"}, f.streams("")))
	assert.Contains(t, f.out.String(), "proxy holds the key")

	err := HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "set", ConfigVal: "x"}, f.streams(""))
	assert.Error(t, err)
}

func TestKey_UnknownSubcommand(t *testing.T) {
	f := newFixture(t, "")
	err := HandleKeyCommand(context.Background(), f.rt, Args{Subcommand: "rotate"}, f.streams(""))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// MODELS COMMAND TESTS (models_cmd.go)
// =============================================================================

func TestModels_ListsServedModelsAndMarksCurrent(t *testing.T) {
	f := newFixture(t, "test-key")

	require.NoError(t, HandleModelsCommand(context.Background(), f.rt, Args{}, f.streams(""), nil))

	lines := strings.Split(strings.TrimRight(f.out.String(), "\n"), "\n")
	assert.Equal(t, []string{"  llama3-70b-8192", "* llama3-8b-8192"}, lines)
}

func TestModels_FallbackWithoutKey(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, HandleModelsCommand(context.Background(), f.rt, Args{}, f.streams(""), nil))

	out := f.out.String()
	for _, m := range prefs.KnownModels {
		assert.Contains(t, out, m)
	}
	assert.Empty(t, f.api.authHeaders(), "no request without a key")
}

func TestModels_FallbackOnError(t *testing.T) {
	f := newFixture(t, "test-key")
	f.api.setStatus(http.StatusInternalServerError)

	require.NoError(t, HandleModelsCommand(context.Background(), f.rt, Args{}, f.streams(""), nil))
	assert.Contains(t, f.err.String(), "showing defaults")
	assert.Contains(t, f.out.String(), "mixtral-8x7b-32768")
}

func TestModels_PickPersists(t *testing.T) {
	f := newFixture(t, "test-key")
	var offered []string
	pick := func(models []string, current string) (string, error) {
		offered = models
		assert.Equal(t, prefs.DefaultModel, current)
		return "llama3-70b-8192", nil
	}

	require.NoError(t, HandleModelsCommand(context.Background(), f.rt, Args{Pick: true}, f.streams(""), pick))

	assert.Equal(t, []string{"llama3-70b-8192", "llama3-8b-8192"}, offered)
	v, _, _ := f.kv.Get(prefs.KeyModel)
	assert.Equal(t, "llama3-70b-8192", v)
}

func TestModels_PickNeedsTerminal(t *testing.T) {
	f := newFixture(t, "test-key")
	err := HandleModelsCommand(context.Background(), f.rt, Args{Pick: true}, f.streams(""), nil)
	var ttyErr *TTYRequiredError
	assert.ErrorAs(t, err, &ttyErr)
}

// =============================================================================
// CONFIG AND THEME TESTS (config_cmd.go)
// =============================================================================

func TestConfig_Show(t *testing.T) {
	f := newFixture(t, "test-key")
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "show"}, f.out))

	out := f.out.String()
	assert.Contains(t, out, prefs.DefaultModel)
	assert.Contains(t, out, "endpoint.url")
	assert.Contains(t, out, f.rt.Config.Endpoint.URL)
}

func TestConfig_GetPreferenceAndKey(t *testing.T) {
	f := newFixture(t, "test-key")
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "get", ConfigKey: "theme"}, f.out))
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "get", ConfigKey: "endpoint.mode"}, f.out))
	assert.Equal(t, "dark\ndirect\n", f.out.String())

	err := HandleConfigCommand(f.rt, Args{Subcommand: "get", ConfigKey: "nope"}, f.out)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfig_SetPreferences(t *testing.T) {
	f := newFixture(t, "test-key")

	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "model", ConfigVal: "gemma2-9b-it"}, f.out))
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "theme", ConfigVal: "Light"}, f.out))
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "theme", ConfigVal: "light"}, f.out))

	p, err := prefs.NewStore(f.kv).Load()
	require.NoError(t, err)
	assert.Equal(t, "gemma2-9b-it", p.Model)
	assert.Equal(t, prefs.ThemeLight, p.Theme)

	err = HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "theme", ConfigVal: "solarized"}, f.out)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfig_SetWritesFile(t *testing.T) {
	f := newFixture(t, "test-key")

	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "endpoint.timeout_secs", ConfigVal: "15"}, f.out))

	path, err := config.ConfigPathTOML()
	require.NoError(t, err)
	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.Endpoint.TimeoutSecs)
	assert.Equal(t, config.DefaultDirectURL, loaded.Endpoint.URL, "the effective endpoint is not written back")

	err = HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "endpoint.mode", ConfigVal: "sideways"}, f.out)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestConfig_Path(t *testing.T) {
	f := newFixture(t, "test-key")
	require.NoError(t, HandleConfigCommand(f.rt, Args{Subcommand: "path"}, f.out))
	assert.Contains(t, f.out.String(), "config.toml")
	assert.Contains(t, f.out.String(), "exports")
}

func TestConfig_MissingArguments(t *testing.T) {
	f := newFixture(t, "test-key")
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfigCommand(f.rt, Args{Subcommand: "set", ConfigKey: "model"}, f.out)))
	assert.Equal(t, ExitUsageError, GetExitCode(HandleConfigCommand(f.rt, Args{Subcommand: "frob"}, f.out)))
}

func TestTheme_ToggleTwiceRestores(t *testing.T) {
	f := newFixture(t, "test-key")

	require.NoError(t, HandleThemeCommand(f.rt, f.out))
	v, _, _ := f.kv.Get(prefs.KeyTheme)
	assert.Equal(t, "light", v)

	require.NoError(t, HandleThemeCommand(f.rt, f.out))
	v, _, _ = f.kv.Get(prefs.KeyTheme)
	assert.Equal(t, "dark", v)
	assert.Equal(t, "theme: light\ntheme: dark\n", f.out.String())
}

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf)
	assert.Contains(t, buf.String(), "quickchat "+Version)
	assert.Contains(t, buf.String(), "Go:")
}
