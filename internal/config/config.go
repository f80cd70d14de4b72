// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/quickchat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// ModeDirect sends the user's credential to the completion endpoint.
	ModeDirect = "direct"
	// ModeProxy talks to a proxy that holds the secret; no credential is sent.
	ModeProxy = "proxy"

	// DefaultDirectURL is the hosted completion endpoint.
	DefaultDirectURL = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultProxyURL is where a locally run proxy is expected.
	DefaultProxyURL = "http://localhost:3000/api/chat"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	CredentialKeyring = "keyring"
	CredentialStore   = "store"
	CredentialSession = "session"

	// CredentialEnvVar is both the environment variable and the storage key.
	CredentialEnvVar = "GROQ_API_KEY"

	// HomeEnvVar relocates the config directory (used by tests and portable installs).
	HomeEnvVar = "QUICKCHAT_HOME"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete quickchat configuration.
//
// User preferences (model, theme) are not stored here; they live in the
// key-value store so that every front end shares them.
type Config struct {
	Version string `toml:"version" json:"version"`

	Endpoint   EndpointConfig   `toml:"endpoint" json:"endpoint"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Credential CredentialConfig `toml:"credential" json:"credential"`
	UI         UIConfig         `toml:"ui" json:"ui"`
	Log        LogConfig        `toml:"log" json:"log"`
}

// EndpointConfig describes where completions are requested.
type EndpointConfig struct {
	// URL of the chat completions endpoint (or the proxy).
	URL string `toml:"url" json:"url"`
	// Mode is "direct" or "proxy".
	Mode string `toml:"mode" json:"mode"`
	// TimeoutSecs bounds a single request. 0 disables the timeout.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerMinute paces submissions client-side. 0 disables pacing.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend"`
	// Path of the backing file. Empty means the default under ConfigDir.
	Path string `toml:"path" json:"path"`
}

// CredentialConfig selects where an entered credential is kept.
type CredentialConfig struct {
	// Store is "keyring", "store" (durable kv, plaintext) or "session".
	Store string `toml:"store" json:"store"`
	// Obfuscate Base64-encodes session-stored credentials. Not encryption.
	Obfuscate bool `toml:"obfuscate" json:"obfuscate"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// WrapWidth caps the transcript width. 0 uses the terminal width.
	WrapWidth int  `toml:"wrap_width" json:"wrap_width"`
	ShowHelp  bool `toml:"show_help" json:"show_help"`
	// ReplHistory keeps typed REPL input lines across runs. Off by default;
	// the transcript itself is never written.
	ReplHistory bool `toml:"repl_history" json:"repl_history"`
}

// LogConfig controls the debug log file.
type LogConfig struct {
	// File path; empty disables logging unless QUICKCHAT_DEBUG is set.
	File  string `toml:"file" json:"file"`
	Level string `toml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Endpoint: EndpointConfig{
			URL:               DefaultDirectURL,
			Mode:              ModeDirect,
			TimeoutSecs:       60,
			RequestsPerMinute: 30,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Credential: CredentialConfig{
			Store: CredentialKeyring,
		},
		UI: UIConfig{
			ShowHelp: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the quickchat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quickchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StorePath returns the path of the durable key-value store file.
func (c *Config) StorePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(dir, "store.db"), nil
	}
	return filepath.Join(dir, "store.json"), nil
}

// LogPath returns the debug log path, or "" when logging is disabled.
func (c *Config) LogPath() string {
	return c.Log.File
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// A .env file in the working directory is loaded before environment
// overrides are applied; variables already set win over the file.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if err := LoadDotEnv(".env"); err != nil {
		loadErr = err
	}

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = fmt.Errorf("failed to load JSON config: %w", err)
					cfg = Default()
				}
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Defaults are usable even when a file failed to parse; the error is
	// returned for the caller to report.
	return cfg, loadErr
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	clearDefaultURL(cfg)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	clearDefaultURL(cfg)
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file with validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// clearDefaultURL empties an endpoint URL that is only the current mode's
// default, so a file that sets mode without url gets that mode's default.
func clearDefaultURL(cfg *Config) {
	if cfg.Endpoint.URL == defaultURLFor(cfg.Endpoint.Mode) {
		cfg.Endpoint.URL = ""
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Endpoint.Mode == "" {
		cfg.Endpoint.Mode = defaults.Endpoint.Mode
	}
	if cfg.Endpoint.URL == "" {
		cfg.Endpoint.URL = defaultURLFor(cfg.Endpoint.Mode)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Credential.Store == "" {
		cfg.Credential.Store = defaults.Credential.Store
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

func defaultURLFor(mode string) string {
	if mode == ModeProxy {
		return DefaultProxyURL
	}
	return DefaultDirectURL
}

// ensureSecurePermissions checks and fixes permissions on config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Written atomically with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# quickchat configuration file\n")
	b.WriteString("# Preferences (model, theme) are kept in the store, not here.\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Endpoint.Mode {
	case ModeDirect, ModeProxy:
	default:
		errs = append(errs, ValidationError{"endpoint.mode", fmt.Sprintf("must be %q or %q, got %q", ModeDirect, ModeProxy, c.Endpoint.Mode)})
	}

	if u, err := url.Parse(c.Endpoint.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"endpoint.url", fmt.Sprintf("must be an absolute http(s) URL, got %q", c.Endpoint.URL)})
	}

	if c.Endpoint.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"endpoint.timeout_secs", "must not be negative"})
	}
	if c.Endpoint.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{"endpoint.requests_per_minute", "must not be negative"})
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("unknown backend %q", c.Storage.Backend)})
	}

	switch c.Credential.Store {
	case CredentialKeyring, CredentialStore, CredentialSession:
	default:
		errs = append(errs, ValidationError{"credential.store", fmt.Sprintf("unknown credential store %q", c.Credential.Store)})
	}

	if c.UI.WrapWidth < 0 {
		errs = append(errs, ValidationError{"ui.wrap_width", "must not be negative"})
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies QUICKCHAT_* environment variables.
//
//   - QUICKCHAT_ENDPOINT: overrides endpoint.url
//   - QUICKCHAT_MODE: overrides endpoint.mode (the URL follows unless set)
//   - QUICKCHAT_STORE: overrides storage.backend
//   - QUICKCHAT_CREDENTIAL_STORE: overrides credential.store
//   - QUICKCHAT_DEBUG: enables debug logging to ConfigDir/debug.log
//
// GROQ_API_KEY is read by the credential provider, not here.
func (c *Config) ApplyEnvOverrides() {
	if mode := os.Getenv("QUICKCHAT_MODE"); mode != "" {
		c.setMode(mode)
	}

	if endpoint := os.Getenv("QUICKCHAT_ENDPOINT"); endpoint != "" {
		c.Endpoint.URL = endpoint
	}

	if backend := os.Getenv("QUICKCHAT_STORE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}

	if store := os.Getenv("QUICKCHAT_CREDENTIAL_STORE"); store != "" {
		c.Credential.Store = strings.ToLower(store)
	}

	if debug := os.Getenv("QUICKCHAT_DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		c.Log.Level = "debug"
		if c.Log.File == "" {
			if dir, err := ConfigDir(); err == nil {
				c.Log.File = filepath.Join(dir, "debug.log")
			}
		}
	}
}

// setMode switches the endpoint mode. A URL still at the old mode's default
// follows the mode; a custom URL is kept.
func (c *Config) setMode(mode string) {
	mode = strings.ToLower(mode)
	if c.Endpoint.URL == "" || c.Endpoint.URL == defaultURLFor(c.Endpoint.Mode) {
		c.Endpoint.URL = defaultURLFor(mode)
	}
	c.Endpoint.Mode = mode
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// settable maps dot-notation keys to their accessors.
var settable = map[string]struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}{
	"endpoint.url": {
		func(c *Config) string { return c.Endpoint.URL },
		func(c *Config, v string) error { c.Endpoint.URL = v; return nil },
	},
	"endpoint.mode": {
		func(c *Config) string { return c.Endpoint.Mode },
		func(c *Config, v string) error { c.setMode(v); return nil },
	},
	"endpoint.timeout_secs": {
		func(c *Config) string { return strconv.Itoa(c.Endpoint.TimeoutSecs) },
		func(c *Config, v string) error { return setInt(&c.Endpoint.TimeoutSecs, v) },
	},
	"endpoint.requests_per_minute": {
		func(c *Config) string { return strconv.Itoa(c.Endpoint.RequestsPerMinute) },
		func(c *Config, v string) error { return setInt(&c.Endpoint.RequestsPerMinute, v) },
	},
	"storage.backend": {
		func(c *Config) string { return c.Storage.Backend },
		func(c *Config, v string) error { c.Storage.Backend = strings.ToLower(v); return nil },
	},
	"storage.path": {
		func(c *Config) string { return c.Storage.Path },
		func(c *Config, v string) error { c.Storage.Path = v; return nil },
	},
	"credential.store": {
		func(c *Config) string { return c.Credential.Store },
		func(c *Config, v string) error { c.Credential.Store = strings.ToLower(v); return nil },
	},
	"credential.obfuscate": {
		func(c *Config) string { return strconv.FormatBool(c.Credential.Obfuscate) },
		func(c *Config, v string) error { return setBool(&c.Credential.Obfuscate, v) },
	},
	"ui.wrap_width": {
		func(c *Config) string { return strconv.Itoa(c.UI.WrapWidth) },
		func(c *Config, v string) error { return setInt(&c.UI.WrapWidth, v) },
	},
	"ui.show_help": {
		func(c *Config) string { return strconv.FormatBool(c.UI.ShowHelp) },
		func(c *Config, v string) error { return setBool(&c.UI.ShowHelp, v) },
	},
	"ui.repl_history": {
		func(c *Config) string { return strconv.FormatBool(c.UI.ReplHistory) },
		func(c *Config, v string) error { return setBool(&c.UI.ReplHistory, v) },
	},
	"log.file": {
		func(c *Config) string { return c.Log.File },
		func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"log.level": {
		func(c *Config) string { return c.Log.Level },
		func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	},
}

// Get retrieves a configuration value using dot notation (e.g. "endpoint.url").
func (c *Config) Get(key string) (string, error) {
	acc, ok := settable[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return acc.get(c), nil
}

// Set sets a configuration value using dot notation and re-validates.
// On validation failure the previous value is restored.
func (c *Config) Set(key, value string) error {
	acc, ok := settable[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	// Some setters touch more than one field (endpoint.mode moves a default
	// URL), so the whole config is restored on failure.
	prev := *c
	if err := acc.set(c, value); err != nil {
		*c = prev
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := c.Validate(); err != nil {
		*c = prev
		return err
	}
	return nil
}

// Keys returns every key accepted by Get and Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", v)
	}
	*dst = b
	return nil
}

// Clone returns a copy of the config. Config holds no reference types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if cfg == nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return err
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
