// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnvVar, dir)
	for _, v := range []string{"QUICKCHAT_MODE", "QUICKCHAT_ENDPOINT", "QUICKCHAT_STORE", "QUICKCHAT_CREDENTIAL_STORE", "QUICKCHAT_DEBUG"} {
		t.Setenv(v, "")
	}
	// Keep Load from picking up a .env in the package directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultDirectURL, cfg.Endpoint.URL)
	assert.Equal(t, ModeDirect, cfg.Endpoint.Mode)
	assert.Equal(t, 60, cfg.Endpoint.TimeoutSecs)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, CredentialKeyring, cfg.Credential.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Endpoint, cfg.Endpoint)
}

func TestLoad_TOMLFillsMissingFields(t *testing.T) {
	dir := isolate(t)
	content := "[endpoint]\nmode = \"proxy\"\n\n[storage]\nbackend = \"sqlite\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeProxy, cfg.Endpoint.Mode)
	assert.Equal(t, DefaultProxyURL, cfg.Endpoint.URL)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, CredentialKeyring, cfg.Credential.Store)

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions should be tightened on load")
	}
}

func TestLoad_ProxyModeKeepsCustomURL(t *testing.T) {
	dir := isolate(t)
	content := "[endpoint]\nmode = \"proxy\"\nurl = \"https://chat.internal/api/chat\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.internal/api/chat", cfg.Endpoint.URL)
}

func TestLoadTOML_ModeOnlyFileOverDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[endpoint]\nmode = \"proxy\"\n"), 0600))

	// config set loads onto Default(), which starts on the direct URL.
	cfg := Default()
	require.NoError(t, LoadTOML(cfg, path))
	assert.Equal(t, DefaultProxyURL, cfg.Endpoint.URL)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	content := `{"endpoint": {"url": "https://proxy.example.com/api/chat", "mode": "proxy"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/api/chat", cfg.Endpoint.URL)
	assert.Equal(t, ModeProxy, cfg.Endpoint.Mode)
}

func TestLoad_BrokenTOMLReturnsDefaultsAndError(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[endpoint\nurl="), 0600))

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultDirectURL, cfg.Endpoint.URL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUICKCHAT_STORE_TEST_ONLY=sqlite\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("QUICKCHAT_STORE_TEST_ONLY") })

	_, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", os.Getenv("QUICKCHAT_STORE_TEST_ONLY"))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	dir := isolate(t)

	t.Setenv("QUICKCHAT_MODE", "PROXY")
	t.Setenv("QUICKCHAT_STORE", "memory")
	t.Setenv("QUICKCHAT_CREDENTIAL_STORE", "session")
	t.Setenv("QUICKCHAT_DEBUG", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ModeProxy, cfg.Endpoint.Mode)
	assert.Equal(t, DefaultProxyURL, cfg.Endpoint.URL, "default URL follows the mode")
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, CredentialSession, cfg.Credential.Store)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "debug.log"), cfg.Log.File)
}

func TestApplyEnvOverrides_ExplicitEndpointWins(t *testing.T) {
	isolate(t)
	t.Setenv("QUICKCHAT_MODE", "proxy")
	t.Setenv("QUICKCHAT_ENDPOINT", "https://chat.internal/api/chat")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://chat.internal/api/chat", cfg.Endpoint.URL)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, "", false},
		{"bad mode", func(c *Config) { c.Endpoint.Mode = "relay" }, "endpoint.mode", true},
		{"relative url", func(c *Config) { c.Endpoint.URL = "/api/chat" }, "endpoint.url", true},
		{"ftp url", func(c *Config) { c.Endpoint.URL = "ftp://example.com" }, "endpoint.url", true},
		{"negative timeout", func(c *Config) { c.Endpoint.TimeoutSecs = -1 }, "endpoint.timeout_secs", true},
		{"zero timeout ok", func(c *Config) { c.Endpoint.TimeoutSecs = 0 }, "", false},
		{"bad backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend", true},
		{"bad credential store", func(c *Config) { c.Credential.Store = "cookie" }, "credential.store", true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// GET/SET AND SAVE
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("endpoint.timeout_secs", "15"))
	v, err := cfg.Get("endpoint.timeout_secs")
	require.NoError(t, err)
	assert.Equal(t, "15", v)

	require.NoError(t, cfg.Set("credential.obfuscate", "true"))
	assert.True(t, cfg.Credential.Obfuscate)

	assert.Error(t, cfg.Set("endpoint.timeout_secs", "soon"))
	assert.Error(t, cfg.Set("nope.key", "1"))
}

func TestConfig_ReplHistoryIsOptIn(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.UI.ReplHistory)

	require.NoError(t, cfg.Set("ui.repl_history", "true"))
	assert.True(t, cfg.UI.ReplHistory)
	v, err := cfg.Get("ui.repl_history")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestConfig_SetModeMovesDefaultURL(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("endpoint.mode", "proxy"))
	assert.Equal(t, DefaultProxyURL, cfg.Endpoint.URL)

	require.NoError(t, cfg.Set("endpoint.mode", "direct"))
	assert.Equal(t, DefaultDirectURL, cfg.Endpoint.URL)

	require.NoError(t, cfg.Set("endpoint.url", "https://chat.internal/api/chat"))
	require.NoError(t, cfg.Set("endpoint.mode", "proxy"))
	assert.Equal(t, "https://chat.internal/api/chat", cfg.Endpoint.URL, "custom URL is kept")
}

func TestConfig_SetInvalidModeRestoresURL(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("endpoint.mode", "proxy"))

	assert.Error(t, cfg.Set("endpoint.mode", "carrier-pigeon"))
	assert.Equal(t, ModeProxy, cfg.Endpoint.Mode)
	assert.Equal(t, DefaultProxyURL, cfg.Endpoint.URL)
}

func TestConfig_SetRestoresOnInvalid(t *testing.T) {
	cfg := Default()

	err := cfg.Set("storage.backend", "redis")
	assert.Error(t, err)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	require.NotEmpty(t, keys)
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "endpoint.url")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Endpoint.Mode = ModeProxy
	cfg.Endpoint.URL = "https://proxy.example.com/api/chat"
	cfg.UI.WrapWidth = 100
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# quickchat configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Endpoint, loaded.Endpoint)
	assert.Equal(t, 100, loaded.UI.WrapWidth)
}

func TestStorePath(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	p, err := cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "store.json"), p)

	cfg.Storage.Backend = BackendSQLite
	p, err = cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "store.db"), p)

	cfg.Storage.Path = "/tmp/custom.db"
	p, err = cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", p)
}

// =============================================================================
// GLOBAL SINGLETON
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently. Run with: go test -race ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	custom := Default()
	custom.Endpoint.Mode = ModeProxy
	SetGlobal(custom)

	assert.Equal(t, ModeProxy, Global().Endpoint.Mode)
}
