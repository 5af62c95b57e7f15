// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package memory provides in-memory account and revocation stores for tests
// and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
)

type emailKey struct {
	kind  auth.Kind
	email string
}

// UserRepository is an in-memory auth.UserRepository.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Credentials
	byEmail map[emailKey]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]*auth.Credentials),
		byEmail: make(map[emailKey]ulid.ULID),
	}
}

// Create stores a copy of creds.
func (r *UserRepository) Create(_ context.Context, creds *auth.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey{kind: creds.Kind, email: auth.NormalizeEmail(creds.Email)}
	if _, taken := r.byEmail[key]; taken {
		return oops.Code("AUTH_EMAIL_TAKEN").
			With("kind", string(creds.Kind)).
			With("email", key.email).
			Wrap(auth.ErrDuplicateEmail)
	}

	stored := *creds
	stored.Email = key.email
	r.byID[creds.ID] = &stored
	r.byEmail[key] = creds.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creds, ok := r.byID[id]
	if !ok {
		return nil, notFound("id", id.String())
	}
	return publicCopy(creds), nil
}

// GetByEmail retrieves an account by kind and email.
func (r *UserRepository) GetByEmail(_ context.Context, kind auth.Kind, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creds, ok := r.lookup(kind, email)
	if !ok {
		return nil, notFound("email", email)
	}
	return publicCopy(creds), nil
}

// GetCredentialsByEmail retrieves an account with its password hash.
func (r *UserRepository) GetCredentialsByEmail(_ context.Context, kind auth.Kind, email string) (*auth.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creds, ok := r.lookup(kind, email)
	if !ok {
		return nil, notFound("email", email)
	}
	c := *creds
	c.User = *publicCopy(creds)
	return &c, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, ok := r.byID[id]
	if !ok {
		return notFound("id", id.String())
	}
	creds.PasswordHash = passwordHash
	creds.UpdatedAt = time.Now().UTC()
	return nil
}

// SetSocketID associates socketID with the account.
func (r *UserRepository) SetSocketID(_ context.Context, id ulid.ULID, socketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, ok := r.byID[id]
	if !ok {
		return notFound("id", id.String())
	}
	s := socketID
	creds.SocketID = &s
	creds.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearSocketID clears the socket id if it still equals socketID.
func (r *UserRepository) ClearSocketID(_ context.Context, id ulid.ULID, socketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, ok := r.byID[id]
	if ok && creds.SocketID != nil && *creds.SocketID == socketID {
		creds.SocketID = nil
		creds.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Len returns the number of stored accounts.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) lookup(kind auth.Kind, email string) (*auth.Credentials, bool) {
	id, ok := r.byEmail[emailKey{kind: kind, email: auth.NormalizeEmail(email)}]
	if !ok {
		return nil, false
	}
	creds, ok := r.byID[id]
	return creds, ok
}

func publicCopy(creds *auth.Credentials) *auth.User {
	u := creds.User
	if creds.SocketID != nil {
		s := *creds.SocketID
		u.SocketID = &s
	}
	return &u
}

func notFound(key, value string) error {
	return oops.Code("USER_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
}

// RevocationStore is an in-memory auth.RevocationStore and
// auth.RevocationPruner.
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]auth.Revocation
}

// NewRevocationStore creates an empty RevocationStore.
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{entries: make(map[string]auth.Revocation)}
}

// Revoke records the revocation. Existing entries are kept.
func (s *RevocationStore) Revoke(_ context.Context, rev *auth.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[rev.TokenHash]; !ok {
		s.entries[rev.TokenHash] = *rev
	}
	return nil
}

// IsRevoked reports whether tokenHash has been revoked.
func (s *RevocationStore) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[tokenHash]
	return ok, nil
}

// DeleteExpired removes revocations whose token expired before the given time.
func (s *RevocationStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, rev := range s.entries {
		if rev.ExpiresAt.Before(before) {
			delete(s.entries, hash)
			n++
		}
	}
	return n, nil
}

var (
	_ auth.UserRepository   = (*UserRepository)(nil)
	_ auth.RevocationStore  = (*RevocationStore)(nil)
	_ auth.RevocationPruner = (*RevocationStore)(nil)
)
