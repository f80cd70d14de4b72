// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Request constants. These are fixed for every completion.
const (
	// SystemPrompt is sent as the first message of every request.
	SystemPrompt = "You are a helpful AI assistant."

	// Temperature is the sampling temperature.
	Temperature = 0.7

	// MaxTokens caps the length of the reply.
	MaxTokens = 1024
)

// Configuration constants.
const (
	// DefaultTimeout bounds a single request when none is configured.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	defaultUserAgent = "quickchat"
)

// PERFORMANCE: Shared HTTP client with connection pooling.
// No client-level timeout; each request is bounded by its context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Error variables.
var (
	// ErrInvalidCredential indicates the endpoint rejected the credential (HTTP 401).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrEmptyResponse indicates a success status with no choices.
	ErrEmptyResponse = errors.New("response contained no choices")

	// ErrModelsUnavailable indicates the endpoint has no model listing
	// (for example a proxy path that only accepts chat requests).
	ErrModelsUnavailable = errors.New("model listing not available for this endpoint")
)

// RequestError is a failed request: either a non-success HTTP status, whose
// body is kept verbatim, or a transport failure (Status 0).
type RequestError struct {
	Status int
	Body   string
	Err    error
}

// Error returns the response body verbatim when there is one.
func (e *RequestError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("request failed: %v", e.Err)
		}
		return "request failed"
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body. Field order and names are the wire format.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse represents a response from the chat completions endpoint.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// modelsResponse is the body of GET /models.
type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// BuildRequest returns the request body for prompt against model.
func BuildRequest(model, prompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
}

// Client sends completion requests to one endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
	log        zerolog.Logger
}

// NewClient returns a client for the full completions URL (or proxy URL).
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: sharedHTTPClient,
		timeout:    DefaultTimeout,
		userAgent:  defaultUserAgent,
		log:        zerolog.Nop(),
	}
}

// WithTimeout sets the per-request timeout. Zero disables it; the request
// is then bounded only by the caller's context.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithRateLimit paces requests to at most rpm per minute. Zero disables pacing.
func (c *Client) WithRateLimit(rpm int) *Client {
	if rpm <= 0 {
		c.limiter = nil
		return c
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
	return c
}

// WithHTTPClient replaces the HTTP client (tests, custom transports).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithLogger sets the logger used for request/response records.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log
	return c
}

// Endpoint returns the completions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete sends prompt to model and returns the assistant's reply.
//
// An empty credential sends no Authorization header (proxy mode). A 401
// response returns an error matching ErrInvalidCredential; any other
// non-success status returns a *RequestError carrying the body verbatim.
// Exactly one HTTP request is made.
func (c *Client) Complete(ctx context.Context, prompt, model, credential string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &RequestError{Err: err}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	bodyBytes, err := json.Marshal(BuildRequest(model, prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, credential)

	resp, err := c.do(req)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", &RequestError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &RequestError{Status: resp.StatusCode, Body: string(body), Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &RequestError{Status: resp.StatusCode, Body: string(body), Err: ErrEmptyResponse}
	}

	return chatResp.GetContent(), nil
}

// handleErrorResponse maps a non-success status to an error. Only 401 is
// singled out; everything else surfaces the body as-is.
func handleErrorResponse(status int, body []byte) error {
	reqErr := &RequestError{Status: status, Body: string(body)}
	if status == http.StatusUnauthorized {
		reqErr.Err = ErrInvalidCredential
	}
	return reqErr
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// ModelsURL derives the model listing URL from the completions URL.
func (c *Client) ModelsURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/chat/completions") {
		return "", ErrModelsUnavailable
	}
	u.Path = strings.TrimSuffix(u.Path, "/chat/completions") + "/models"
	return u.String(), nil
}

// ListModels returns the sorted model ids the endpoint offers.
func (c *Client) ListModels(ctx context.Context, credential string) ([]string, error) {
	modelsURL, err := c.ModelsURL()
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, credential)

	resp, err := c.do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var modelsResp modelsResponse
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	ids := make([]string, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// =============================================================================
// TRANSPORT HELPERS
// =============================================================================

// setHeaders sets JSON and auth headers. No Authorization header is sent
// without a credential.
func (c *Client) setHeaders(req *http.Request, credential string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
}

// do performs the request and logs method, path, status and duration.
// SECURITY: Headers and bodies are never logged.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", duration).
			Err(err).
			Msg("api request failed")
		return nil, err
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("api response")
	return resp, nil
}

// readResponse reads a response body with size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
