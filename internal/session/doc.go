// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the application state of one quickchat run.
//
// A Session bundles the loaded preferences, the credential provider, the
// completion client and the transcript, and owns the submit pipeline shared
// by the TUI, the REPL and the ask command.
//
// # Key Types
//
//   - Session: state object with a busy guard (one request in flight)
//   - Deps: the collaborators a Session is built from
//   - Outcome: result of one Submit, including NeedCredential
//
// # Usage
//
//	sess, err := session.New(session.Deps{
//	    Prefs:       prefs.NewStore(kv),
//	    Credentials: credential.FromConfig(cfg, kv, storage.NewMemoryStore()),
//	    Client:      cloud.NewClient(cfg.Endpoint.URL),
//	})
//	out := sess.Submit(ctx, "hello")
//	if out.Kind == session.NeedCredential {
//	    sess.AcceptCredential(key)
//	    out = sess.Resend(ctx)
//	}
package session
