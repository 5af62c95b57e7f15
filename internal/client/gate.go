// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package client

import (
	"context"
	"errors"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/pkg/api"
)

// ErrLoginRequired matches every *LoginRequiredError.
var ErrLoginRequired = errors.New("login required")

// LoginRequiredError sends the caller to a login route.
type LoginRequiredError struct {
	Route string
	// Cause is the server rejection, if any. It is nil when no token was
	// stored.
	Cause error
}

func (e *LoginRequiredError) Error() string {
	if e.Cause != nil {
		return "login required at " + e.Route + ": " + e.Cause.Error()
	}
	return "login required at " + e.Route
}

// Is matches ErrLoginRequired.
func (e *LoginRequiredError) Is(target error) bool { return target == ErrLoginRequired }

func (e *LoginRequiredError) Unwrap() error { return e.Cause }

// LoginRoute returns the login route for a kind.
func LoginRoute(kind auth.Kind) string {
	if kind == auth.KindCaptain {
		return "/captain-login"
	}
	return "/login"
}

// Gate guards protected screens. A screen is entered only when a token is
// stored and the server still accepts it.
type Gate struct {
	client *Client
}

// NewGate returns a Gate backed by c.
func NewGate(c *Client) *Gate {
	return &Gate{client: c}
}

// Enter returns the signed-in account or a *LoginRequiredError. A token the
// server rejects is cleared, except one that belongs to the other account
// kind. Transport failures are returned as-is and leave the token in place.
func (g *Gate) Enter(ctx context.Context, kind auth.Kind) (*api.User, error) {
	user, err := g.client.Profile(ctx, kind)
	if err == nil {
		return user, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		if apiErr.SessionEnded() {
			if clearErr := g.client.tokens.Clear(); clearErr != nil {
				return nil, clearErr
			}
		}
		return nil, &LoginRequiredError{Route: LoginRoute(kind), Cause: err}
	}
	return nil, err
}
