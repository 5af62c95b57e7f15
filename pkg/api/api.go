// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package api defines the JSON bodies and routes of the MoveX HTTP API.
// It is shared by the server and the client.
package api

import "time"

// Account kinds as they appear in routes and payloads.
const (
	KindUser    = "user"
	KindCaptain = "captain"
)

// Route actions.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionProfile  = "profile"
	ActionLogout   = "logout"
)

// TokenCookie is the cookie that carries the token for browser clients.
const TokenCookie = "token"

// SocketPath is the presence websocket endpoint.
const SocketPath = "/ws"

// Route returns the path of an action for a kind, e.g. "/captains/login".
func Route(kind, action string) string {
	return "/" + kind + "s/" + action
}

// FullName is the name pair of an account.
type FullName struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname,omitempty"`
}

// RegisterRequest is the body of POST /{kind}s/register.
type RegisterRequest struct {
	FullName FullName `json:"fullname"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
}

// LoginRequest is the body of POST /{kind}s/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the public view of an account. It never carries the password.
type User struct {
	ID        string    `json:"_id"`
	Kind      string    `json:"kind"`
	FullName  FullName  `json:"fullname"`
	Email     string    `json:"email"`
	SocketID  *string   `json:"socketId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileResponse is returned by GET /{kind}s/profile.
type ProfileResponse struct {
	User User `json:"user"`
}

// MessageResponse is returned by logout.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response. Fields maps request
// paths such as "fullname.firstname" to a message.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// CodeTokenKindMismatch is the error code for a valid token presented on
// the other account kind's routes. The session itself is still live.
const CodeTokenKindMismatch = "TOKEN_KIND_MISMATCH"

// SocketHello is the first frame the server sends on /ws.
type SocketHello struct {
	SocketID string `json:"socketId"`
	UserID   string `json:"userId"`
}
