// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/movex/movex/pkg/errutil"
)

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service provides account registration, login, token validation and logout.
type Service struct {
	users       UserRepository
	revocations RevocationStore
	hasher      PasswordHasher
	tokens      TokenIssuer
	logger      *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(users UserRepository, revocations RevocationStore, hasher PasswordHasher, tokens TokenIssuer) (*Service, error) {
	return NewServiceWithLogger(users, revocations, hasher, tokens, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(users UserRepository, revocations RevocationStore, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if revocations == nil {
		return nil, oops.Errorf("revocation store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:       users,
		revocations: revocations,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
	}, nil
}

// Register validates the input, stores a new account with a hashed password
// and returns a token for it.
func (s *Service) Register(ctx context.Context, in Registration) (*Session, error) {
	if err := ValidateRegistration(in); err != nil {
		return nil, validationFailed(err)
	}
	if !in.Kind.Valid() {
		return nil, oops.Code("AUTH_INVALID_KIND").With("kind", string(in.Kind)).Errorf("unknown account kind %q", in.Kind)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	creds, err := NewUser(in.Kind, in.FullName, in.Email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build account").
			Wrap(err)
	}

	if err := s.users.Create(ctx, creds); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").
				With("kind", string(in.Kind)).
				With("email", creds.Email).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	user := creds.User
	return s.issue(&user)
}

// Login authenticates an account by email and password and returns a token.
// Unknown emails and wrong passwords produce the same error, and a dummy
// hash is verified for unknown emails so that both take the same time.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := ValidateLogin(in); err != nil {
		return nil, validationFailed(err)
	}

	creds, lookupErr := s.users.GetCredentialsByEmail(ctx, in.Kind, in.Email)

	var targetHash string
	var exists bool
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get credentials by email").
				Wrap(lookupErr)
		}
		targetHash = s.dummyPasswordHash()
	} else {
		targetHash = creds.PasswordHash
		exists = true
	}

	valid, verifyErr := s.hasher.Verify(in.Password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, invalidCredentials()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", creds.ID.String()).
			Wrap(verifyErr)
	}
	if !exists || !valid {
		return nil, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(creds.PasswordHash) {
		s.upgradeHash(ctx, creds.ID, in.Password)
	}

	user := creds.User
	return s.issue(&user)
}

// Authenticate validates a bearer token for the given account kind and
// returns the account it belongs to.
func (s *Service) Authenticate(ctx context.Context, kind Kind, token string) (*User, *Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, HashToken(token))
	if err != nil {
		return nil, nil, oops.Code("AUTH_REVOCATION_CHECK_FAILED").Wrap(err)
	}
	if revoked {
		return nil, nil, oops.Code("TOKEN_REVOKED").Wrap(ErrTokenRevoked)
	}

	id, err := claims.AccountID()
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("TOKEN_INVALID").
				With("reason", "account no longer exists").
				With("user_id", id.String()).
				Wrap(ErrTokenInvalid)
		}
		return nil, nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("user_id", id.String()).
			Wrap(err)
	}
	if kind != "" && user.Kind != kind {
		return nil, nil, oops.Code("TOKEN_KIND_MISMATCH").
			With("expected", string(kind)).
			With("actual", string(user.Kind)).
			Wrap(ErrTokenKindMismatch)
	}
	return user, claims, nil
}

// Logout revokes the token until its natural expiry. Logging out with an
// already expired token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil
		}
		return err
	}

	id, err := claims.AccountID()
	if err != nil {
		return err
	}

	rev, err := NewRevocation(id, HashToken(token), claims.Expiry())
	if err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "build revocation").
			Wrap(err)
	}
	if err := s.revocations.Revoke(ctx, rev); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke token").
			With("user_id", id.String()).
			Wrap(err)
	}
	return nil
}

// AttachSocket records socketID as the account's live connection.
func (s *Service) AttachSocket(ctx context.Context, userID ulid.ULID, socketID string) error {
	if socketID == "" {
		return oops.Code("AUTH_INVALID_SOCKET").Errorf("socket ID cannot be empty")
	}
	if err := s.users.SetSocketID(ctx, userID, socketID); err != nil {
		return oops.Code("AUTH_SOCKET_ATTACH_FAILED").
			With("user_id", userID.String()).
			With("socket_id", socketID).
			Wrap(err)
	}
	return nil
}

// DetachSocket clears the account's live connection if it is still socketID.
func (s *Service) DetachSocket(ctx context.Context, userID ulid.ULID, socketID string) error {
	if err := s.users.ClearSocketID(ctx, userID, socketID); err != nil {
		return oops.Code("AUTH_SOCKET_DETACH_FAILED").
			With("user_id", userID.String()).
			With("socket_id", socketID).
			Wrap(err)
	}
	return nil
}

func (s *Service) issue(user *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// upgradeHash re-hashes the password with current parameters. Failures are
// logged; login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, id ulid.ULID, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		errutil.LogError(s.logger, "password hash upgrade failed",
			oops.With("user_id", id.String()).Wrap(err))
		return
	}
	s.logger.Info("password hash upgraded", "user_id", id.String())
}

// dummyPasswordHash returns a hash produced by the configured hasher for a
// password nobody knows. Verifying against it costs the same as verifying a
// real account.
func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(ulid.Make().String())
		if err != nil {
			errutil.LogError(s.logger, "dummy hash generation failed", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}
