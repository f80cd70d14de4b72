// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential resolves the API key used for completion requests.
//
// Resolution order is: injected environment value, durable storage, session
// storage. In proxy mode no credential is needed and Resolve always
// succeeds with an empty value.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/quickchat/internal/config"
	"github.com/jeranaias/quickchat/internal/storage"
)

// Key is the storage key (and environment variable) for the credential.
const Key = config.CredentialEnvVar

// KeyURL is where users obtain a key.
const KeyURL = "https://console.groq.com/"

// ErrMissingCredential means no credential is available and the user must
// be prompted. No request may be sent.
var ErrMissingCredential = errors.New("credential not provided")

// MissingMessage is shown when the user declines to enter a key.
const MissingMessage = "Error: API key not provided. You can get a Groq API key from " + KeyURL

// Source reports where a credential came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceEnv     Source = "environment"
	SourceDurable Source = "durable"
	SourceSession Source = "session"
	SourceProxy   Source = "proxy"
)

// Credential is a resolved API key. Value is empty only in proxy mode.
type Credential struct {
	Value  string
	Source Source
}

// Present reports whether there is a key to send.
func (c Credential) Present() bool {
	return c.Value != ""
}

// Redacted returns a display-safe form of the key.
// SECURITY: Never shows more than the last four characters.
func (c Credential) Redacted() string {
	switch {
	case c.Value == "":
		return "[not set]"
	case len(c.Value) <= 8:
		return "****"
	default:
		return "****" + c.Value[len(c.Value)-4:]
	}
}

// Target is where Accept persists a new credential.
type Target int

const (
	// TargetDurable persists across runs.
	TargetDurable Target = iota
	// TargetSession lasts for this process only.
	TargetSession
)

// Options configures a Provider.
type Options struct {
	// Proxy disables credentials entirely.
	Proxy bool
	// Env looks up the injected value; defaults to os.Getenv.
	Env func(string) string
	// Durable is the cross-run store (keyring or the durable kv store). May be nil.
	Durable storage.Store
	// Session is the process-lifetime store. May be nil.
	Session storage.Store
	// Target selects where Accept writes.
	Target Target
	// Log receives warnings about unreadable stores.
	Log zerolog.Logger
}

// Provider resolves, accepts and invalidates the credential.
type Provider struct {
	proxy   bool
	env     func(string) string
	durable storage.Store
	session storage.Store
	target  Target
	log     zerolog.Logger
}

// NewProvider returns a Provider for opts.
func NewProvider(opts Options) *Provider {
	env := opts.Env
	if env == nil {
		env = os.Getenv
	}
	return &Provider{
		proxy:   opts.Proxy,
		env:     env,
		durable: opts.Durable,
		session: opts.Session,
		target:  opts.Target,
		log:     opts.Log,
	}
}

// WithLogger sets the logger for store warnings.
func (p *Provider) WithLogger(log zerolog.Logger) *Provider {
	p.log = log
	return p
}

// FromConfig builds a Provider using the configured credential store.
// durable is the kv store opened from cfg.Storage; it is used when
// credential.store is "store". session is shared for the process.
//
// Proxy mode never holds a key, so no durable store (and no keyring) is
// wired at all.
func FromConfig(cfg *config.Config, durable, session storage.Store) *Provider {
	opts := Options{
		Proxy:   cfg.Endpoint.Mode == config.ModeProxy,
		Session: session,
		Target:  TargetSession,
	}

	if cfg.Credential.Obfuscate && session != nil {
		opts.Session = storage.NewBase64Store(session)
	}
	if opts.Proxy {
		return NewProvider(opts)
	}

	switch cfg.Credential.Store {
	case config.CredentialKeyring:
		opts.Durable = storage.NewKeyringStore(storage.DefaultKeyringService)
		opts.Target = TargetDurable
	case config.CredentialStore:
		opts.Durable = durable
		opts.Target = TargetDurable
	}
	return NewProvider(opts)
}

// Proxy reports whether the provider is in proxy mode.
func (p *Provider) Proxy() bool {
	return p.proxy
}

// Resolve returns the first credential found. It returns
// ErrMissingCredential when a prompt is needed.
//
// RELIABILITY: a store that cannot be read (typically a keyring with no
// secret service running) is logged and treated as empty, so the user is
// prompted instead of the program failing to start.
func (p *Provider) Resolve() (Credential, error) {
	return p.resolve(true)
}

func (p *Provider) resolve(warn bool) (Credential, error) {
	if p.proxy {
		return Credential{Source: SourceProxy}, nil
	}

	if v := strings.TrimSpace(p.env(Key)); v != "" {
		return Credential{Value: v, Source: SourceEnv}, nil
	}

	for _, s := range []struct {
		store  storage.Store
		source Source
	}{
		{p.durable, SourceDurable},
		{p.session, SourceSession},
	} {
		if s.store == nil {
			continue
		}
		v, ok, err := s.store.Get(Key)
		if err != nil {
			if warn {
				p.log.Warn().Err(err).Str("store", string(s.source)).Msg("credential store unreadable; treating as empty")
			}
			continue
		}
		if v = strings.TrimSpace(v); ok && v != "" {
			return Credential{Value: v, Source: s.source}, nil
		}
	}

	return Credential{Source: SourceNone}, ErrMissingCredential
}

// Accept stores a user-entered key. Surrounding whitespace is trimmed; an
// empty result is rejected with ErrMissingCredential.
//
// When the durable store cannot be written the key is kept in the session
// store instead, so it still works for this run.
func (p *Provider) Accept(raw string) (Credential, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Credential{}, ErrMissingCredential
	}

	if p.target == TargetDurable && p.durable != nil {
		err := p.durable.Set(Key, v)
		if err == nil {
			return Credential{Value: v, Source: SourceDurable}, nil
		}
		if p.session == nil {
			return Credential{}, fmt.Errorf("store credential: %w", err)
		}
		p.log.Warn().Err(err).Msg("durable credential store unavailable; keeping the key for this session only")
	}

	if p.session == nil {
		return Credential{}, errors.New("no credential store configured")
	}
	if err := p.session.Set(Key, v); err != nil {
		return Credential{}, fmt.Errorf("store credential: %w", err)
	}
	return Credential{Value: v, Source: SourceSession}, nil
}

// Invalidate removes the stored credential from durable and session storage.
// An environment-injected value cannot be removed and will be used again.
// A durable store that is unavailable holds nothing to remove, so its error
// is only logged.
func (p *Provider) Invalidate() error {
	var errs []error
	if p.durable != nil {
		if err := p.durable.Remove(Key); err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				p.log.Warn().Err(err).Msg("durable credential store unavailable; nothing removed")
			} else {
				errs = append(errs, err)
			}
		}
	}
	if p.session != nil {
		if err := p.session.Remove(Key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Source reports where Resolve would find the credential without
// returning the value.
func (p *Provider) Source() Source {
	c, err := p.resolve(false)
	if err != nil {
		return SourceNone
	}
	return c.Source
}
