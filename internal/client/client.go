// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package client talks to the MoveX API on behalf of the CLI and keeps the
// session token between invocations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/pkg/api"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Code    string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.Status, strings.Join(parts, "; "))
}

// FieldErrors returns the per-field problems reported by the server.
func (e *APIError) FieldErrors() map[string]string { return e.Fields }

// Unauthorized reports whether the server rejected the credentials or token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// SessionEnded reports whether the server rejected the token for good.
// A token of the other account kind is refused but still live.
func (e *APIError) SessionEnded() bool {
	return e.Unauthorized() && e.Code != api.CodeTokenKindMismatch
}

// Client calls the MoveX API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API at baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code("CLIENT_BASE_URL_INVALID").With("base_url", baseURL).Errorf("base URL must be an absolute http(s) URL")
	}
	if tokens == nil {
		return nil, oops.Errorf("token store is required")
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register signs up an account of the given kind and stores the returned
// token. The form is reset whether or not the call succeeds.
func (c *Client) Register(ctx context.Context, kind auth.Kind, form *SignUpForm) (*api.AuthResponse, error) {
	defer form.Reset()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var out api.AuthResponse
	if err := c.do(ctx, http.MethodPost, api.Route(kind.String(), api.ActionRegister), "", form.request(), &out); err != nil {
		return nil, err
	}
	if err := c.tokens.Save(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in and stores the returned token. The form is reset whether
// or not the call succeeds.
func (c *Client) Login(ctx context.Context, kind auth.Kind, form *LoginForm) (*api.AuthResponse, error) {
	defer form.Reset()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var out api.AuthResponse
	if err := c.do(ctx, http.MethodPost, api.Route(kind.String(), api.ActionLogin), "", form.request(), &out); err != nil {
		return nil, err
	}
	if err := c.tokens.Save(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the signed-in account. Without a stored token it returns
// a *LoginRequiredError without calling the server.
func (c *Client) Profile(ctx context.Context, kind auth.Kind) (*api.User, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, &LoginRequiredError{Route: LoginRoute(kind)}
	}

	var out api.ProfileResponse
	if err := c.do(ctx, http.MethodGet, api.Route(kind.String(), api.ActionProfile), token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout revokes the stored token on the server and clears it locally. A
// token the server already rejects counts as logged out. Any other failure,
// including a token of the other account kind, keeps the token so that the
// session can still be revoked.
func (c *Client) Logout(ctx context.Context, kind auth.Kind) error {
	token, err := c.tokens.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	callErr := c.do(ctx, http.MethodPost, api.Route(kind.String(), api.ActionLogout), token, nil, nil)
	var apiErr *APIError
	if callErr != nil && !(errors.As(callErr, &apiErr) && apiErr.SessionEnded()) {
		return callErr
	}
	return c.tokens.Clear()
}

// HasToken reports whether a token is stored.
func (c *Client) HasToken() (bool, error) {
	token, err := c.tokens.Load()
	return token != "", err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return oops.Code("CLIENT_ENCODE_FAILED").Wrap(err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return oops.Code("CLIENT_REQUEST_FAILED").With("url", endpoint).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return oops.Code("CLIENT_UNREACHABLE").With("method", method).With("url", endpoint).Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Code("CLIENT_DECODE_FAILED").With("url", endpoint).Wrap(err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
		apiErr.Fields = body.Fields
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
