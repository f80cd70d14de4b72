// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to an OpenAI-compatible chat completions endpoint.
//
// Each Complete call sends exactly one POST with a fixed system instruction,
// temperature and token cap, and returns the first choice's content. There
// is no retry and no streaming.
//
// # Key Types
//
//   - Client: HTTP client for the completions endpoint or a proxy
//   - ChatRequest: the JSON request body
//   - RequestError: non-success status or transport failure, body verbatim
//
// # Usage
//
//	client := cloud.NewClient(cfg.Endpoint.URL).
//	    WithTimeout(60 * time.Second).
//	    WithRateLimit(30)
//	reply, err := client.Complete(ctx, "Hello", "llama3-8b-8192", apiKey)
//	if errors.Is(err, cloud.ErrInvalidCredential) {
//	    // clear the stored key and ask again
//	}
//
// # Security
//
// The credential is only ever placed in the Authorization header and is
// never logged. In proxy mode the credential is empty and no header is sent.
package cloud
