// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Kind distinguishes riders from drivers. Both share one account shape.
type Kind string

// Account kinds.
const (
	KindUser    Kind = "user"
	KindCaptain Kind = "captain"
)

// ParseKind parses an account kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", oops.Code("AUTH_INVALID_KIND").
			With("kind", s).
			Errorf("unknown account kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is a known account kind.
func (k Kind) Valid() bool {
	return k == KindUser || k == KindCaptain
}

// Resource returns the plural path segment used for the kind's routes,
// "users" or "captains".
func (k Kind) Resource() string {
	return string(k) + "s"
}

func (k Kind) String() string {
	return string(k)
}

// FullName is the display name of an account.
type FullName struct {
	FirstName string
	LastName  string
}

// String joins the non-empty name parts.
func (n FullName) String() string {
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}

// User is the public projection of an account. It never carries the
// password hash.
type User struct {
	ID        ulid.ULID
	Kind      Kind
	FullName  FullName
	Email     string
	SocketID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials is the authentication projection of an account. Only the
// explicit credential reads return it.
type Credentials struct {
	User
	PasswordHash string
}

// NewUser creates validated Credentials for a new account. The email is
// normalized to lower case. passwordHash must already be a hash.
func NewUser(kind Kind, name FullName, email, passwordHash string) (*Credentials, error) {
	if !kind.Valid() {
		return nil, oops.Code("AUTH_INVALID_KIND").With("kind", string(kind)).Errorf("unknown account kind %q", kind)
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Credentials{
		User: User{
			ID:   ulid.Make(),
			Kind: kind,
			FullName: FullName{
				FirstName: strings.TrimSpace(name.FirstName),
				LastName:  strings.TrimSpace(name.LastName),
			},
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: passwordHash,
	}, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository manages account persistence.
//
// Reads return the public User projection unless the method name says
// otherwise. Email lookups are case-insensitive and scoped to one kind.
type UserRepository interface {
	// Create stores a new account. Returns an error wrapping
	// ErrDuplicateEmail when the email is taken for the same kind.
	Create(ctx context.Context, creds *Credentials) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves an account by kind and email.
	GetByEmail(ctx context.Context, kind Kind, email string) (*User, error)

	// GetCredentialsByEmail retrieves an account together with its password
	// hash. Used only by login.
	GetCredentialsByEmail(ctx context.Context, kind Kind, email string) (*Credentials, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetSocketID associates a live connection with the account.
	SetSocketID(ctx context.Context, id ulid.ULID, socketID string) error

	// ClearSocketID removes the association, but only while socketID is
	// still the current one.
	ClearSocketID(ctx context.Context, id ulid.ULID, socketID string) error
}
