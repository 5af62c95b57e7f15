// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import "errors"

// Sentinel errors. Storage and service layers wrap these with oops codes;
// callers match with errors.Is.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an email is already registered for
	// the same account kind.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmptyPassword is returned when attempting to hash an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Token errors.
var (
	ErrTokenMissing = errors.New("authentication token is missing")
	ErrTokenInvalid = errors.New("authentication token is invalid")
	ErrTokenExpired = errors.New("authentication token has expired")
	ErrTokenRevoked = errors.New("authentication token has been revoked")

	// ErrTokenKindMismatch is returned for a live token of the other
	// account kind.
	ErrTokenKindMismatch = errors.New("authentication token belongs to another account kind")
)

// IsTokenError reports whether err is one of the token errors.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenKindMismatch)
}
