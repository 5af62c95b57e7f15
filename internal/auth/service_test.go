// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/auth/memory"
	"github.com/movex/movex/internal/auth/mocks"
	"github.com/movex/movex/pkg/errutil"
)

type serviceDeps struct {
	users       *mocks.MockUserRepository
	revocations *mocks.MockRevocationStore
	hasher      *mocks.MockPasswordHasher
	tokens      *mocks.MockTokenIssuer
}

func newTestService(t *testing.T) (*auth.Service, serviceDeps) {
	t.Helper()
	deps := serviceDeps{
		users:       mocks.NewMockUserRepository(t),
		revocations: mocks.NewMockRevocationStore(t),
		hasher:      mocks.NewMockPasswordHasher(t),
		tokens:      mocks.NewMockTokenIssuer(t),
	}
	svc, err := auth.NewService(deps.users, deps.revocations, deps.hasher, deps.tokens)
	require.NoError(t, err)
	return svc, deps
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		revocations auth.RevocationStore
		hasher      auth.PasswordHasher
		tokens      auth.TokenIssuer
		expectError string
	}{
		{
			name:        "nil users repository",
			revocations: mocks.NewMockRevocationStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "users repository is required",
		},
		{
			name:        "nil revocation store",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "revocation store is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			revocations: mocks.NewMockRevocationStore(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "password hasher is required",
		},
		{
			name:        "nil token issuer",
			users:       mocks.NewMockUserRepository(t),
			revocations: mocks.NewMockRevocationStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "token issuer is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.revocations, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewServiceWithLogger_NilLogger(t *testing.T) {
	svc, err := auth.NewServiceWithLogger(
		mocks.NewMockUserRepository(t),
		mocks.NewMockRevocationStore(t),
		mocks.NewMockPasswordHasher(t),
		mocks.NewMockTokenIssuer(t),
		nil,
	)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores hashed password and returns token", func(t *testing.T) {
		svc, deps := newTestService(t)
		expiresAt := time.Now().Add(24 * time.Hour)

		deps.hasher.On("Hash", "secret123").Return("$2a$10$hashed", nil)
		deps.users.On("Create", ctx, mock.MatchedBy(func(c *auth.Credentials) bool {
			return c.PasswordHash == "$2a$10$hashed" &&
				c.Email == "asha@example.com" &&
				c.Kind == auth.KindUser
		})).Return(nil)
		deps.tokens.On("Issue", mock.AnythingOfType("ulid.ULID")).Return("signed.jwt.token", expiresAt, nil)

		in := validRegistration()
		in.Email = "Asha@Example.com"
		session, err := svc.Register(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "signed.jwt.token", session.Token)
		assert.Equal(t, expiresAt, session.ExpiresAt)
		assert.Equal(t, "asha@example.com", session.User.Email)
		assert.Equal(t, "Asha", session.User.FullName.FirstName)
	})

	t.Run("validation failure never reaches storage", func(t *testing.T) {
		svc, _ := newTestService(t)

		in := validRegistration()
		in.FullName.FirstName = "Al"
		_, err := svc.Register(ctx, in)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_FAILED")

		var verr *auth.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, auth.FieldFirstName)
	})

	t.Run("duplicate email surfaces conflict", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.hasher.On("Hash", "secret123").Return("$2a$10$hashed", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.Credentials")).
			Return(oops.Code("AUTH_EMAIL_TAKEN").Wrap(auth.ErrDuplicateEmail))

		session, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_TAKEN")
	})

	t.Run("hash failure propagates without retry", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.hasher.On("Hash", "secret123").Return("", errors.New("entropy exhausted")).Once()

		_, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
		deps.hasher.AssertNumberOfCalls(t, "Hash", 1)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.hasher.On("Hash", "secret123").Return("$2a$10$hashed", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.Credentials")).Return(errors.New("connection reset"))

		_, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
		assert.NotErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("signing failure", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.hasher.On("Hash", "secret123").Return("$2a$10$hashed", nil)
		deps.users.On("Create", ctx, mock.AnythingOfType("*auth.Credentials")).Return(nil)
		deps.tokens.On("Issue", mock.AnythingOfType("ulid.ULID")).
			Return("", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Errorf("boom"))

		_, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_SIGN_FAILED")
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	creds := &auth.Credentials{
		User: auth.User{
			ID:       ulid.Make(),
			Kind:     auth.KindCaptain,
			FullName: auth.FullName{FirstName: "Ravi"},
			Email:    "ravi@example.com",
		},
		PasswordHash: "$2a$10$stored",
	}
	in := auth.LoginInput{Kind: auth.KindCaptain, Email: "ravi@example.com", Password: "secret123"}

	t.Run("successful login issues token", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").Return(creds, nil)
		deps.hasher.On("Verify", "secret123", creds.PasswordHash).Return(true, nil)
		deps.hasher.On("NeedsUpgrade", creds.PasswordHash).Return(false)
		deps.tokens.On("Issue", creds.ID).Return("tok", time.Now().Add(time.Hour), nil)

		session, err := svc.Login(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "tok", session.Token)
		assert.Equal(t, creds.ID, session.User.ID)
	})

	t.Run("unknown email verifies dummy hash", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").
			Return(nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))
		deps.hasher.On("Hash", mock.AnythingOfType("string")).Return("$2a$10$dummy", nil).Once()
		deps.hasher.On("Verify", "secret123", "$2a$10$dummy").Return(false, nil)

		session, err := svc.Login(ctx, in)
		require.Error(t, err)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("dummy hash is computed once", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").Return(nil, auth.ErrNotFound)
		deps.hasher.On("Hash", mock.AnythingOfType("string")).Return("$2a$10$dummy", nil).Once()
		deps.hasher.On("Verify", "secret123", "$2a$10$dummy").Return(false, nil).Twice()

		_, err := svc.Login(ctx, in)
		require.Error(t, err)
		_, err = svc.Login(ctx, in)
		require.Error(t, err)
	})

	t.Run("wrong password gives same error as unknown email", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").Return(creds, nil)
		deps.hasher.On("Verify", "secret123", creds.PasswordHash).Return(false, nil)

		_, err := svc.Login(ctx, in)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, auth.ErrInvalidCredentials.Error(), err.Error())
	})

	t.Run("corrupt stored hash is an internal failure", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").Return(creds, nil)
		deps.hasher.On("Verify", "secret123", creds.PasswordHash).
			Return(false, oops.Code("AUTH_INVALID_HASH").Errorf("bad hash"))

		_, err := svc.Login(ctx, in)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").
			Return(nil, errors.New("connection refused"))

		_, err := svc.Login(ctx, in)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("missing fields are validation errors", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Login(ctx, auth.LoginInput{Kind: auth.KindUser})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION_FAILED")
	})

	t.Run("upgrades hash with outdated cost", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.users.On("GetCredentialsByEmail", ctx, auth.KindCaptain, "ravi@example.com").Return(creds, nil)
		deps.hasher.On("Verify", "secret123", creds.PasswordHash).Return(true, nil)
		deps.hasher.On("NeedsUpgrade", creds.PasswordHash).Return(true)
		deps.hasher.On("Hash", "secret123").Return("$2a$10$upgraded", nil)
		deps.users.On("UpdatePassword", ctx, creds.ID, "$2a$10$upgraded").Return(nil)
		deps.tokens.On("Issue", creds.ID).Return("tok", time.Now().Add(time.Hour), nil)

		_, err := svc.Login(ctx, in)
		require.NoError(t, err)
	})
}

func TestService_Login_UpgradeFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenIssuer(t)
	svc, err := auth.NewServiceWithLogger(users, mocks.NewMockRevocationStore(t), hasher, tokens, logger)
	require.NoError(t, err)

	creds := &auth.Credentials{
		User:         auth.User{ID: ulid.Make(), Kind: auth.KindUser, Email: "asha@example.com"},
		PasswordHash: "$2a$04$old",
	}
	users.On("GetCredentialsByEmail", ctx, auth.KindUser, "asha@example.com").Return(creds, nil)
	hasher.On("Verify", "secret123", creds.PasswordHash).Return(true, nil)
	hasher.On("NeedsUpgrade", creds.PasswordHash).Return(true)
	hasher.On("Hash", "secret123").Return("$2a$10$new", nil)
	users.On("UpdatePassword", ctx, creds.ID, "$2a$10$new").Return(errors.New("db down"))
	tokens.On("Issue", creds.ID).Return("tok", time.Now().Add(time.Hour), nil)

	session, err := svc.Login(ctx, auth.LoginInput{Kind: auth.KindUser, Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Contains(t, buf.String(), "password hash upgrade failed")
	assert.Contains(t, buf.String(), "db down")
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	user := &auth.User{ID: userID, Kind: auth.KindUser, Email: "asha@example.com"}
	claims := &auth.Claims{UserID: userID.String()}
	tokenHash := auth.HashToken("tok")

	t.Run("valid token returns account", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(claims, nil)
		deps.revocations.On("IsRevoked", ctx, tokenHash).Return(false, nil)
		deps.users.On("GetByID", ctx, userID).Return(user, nil)

		got, gotClaims, err := svc.Authenticate(ctx, auth.KindUser, "tok")
		require.NoError(t, err)
		assert.Equal(t, user, got)
		assert.Equal(t, claims, gotClaims)
	})

	t.Run("parse errors pass through", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(nil, oops.Code("TOKEN_EXPIRED").Wrap(auth.ErrTokenExpired))

		_, _, err := svc.Authenticate(ctx, auth.KindUser, "tok")
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(claims, nil)
		deps.revocations.On("IsRevoked", ctx, tokenHash).Return(true, nil)

		_, _, err := svc.Authenticate(ctx, auth.KindUser, "tok")
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
		errutil.AssertErrorCode(t, err, "TOKEN_REVOKED")
	})

	t.Run("deleted account invalidates token", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(claims, nil)
		deps.revocations.On("IsRevoked", ctx, tokenHash).Return(false, nil)
		deps.users.On("GetByID", ctx, userID).Return(nil, auth.ErrNotFound)

		_, _, err := svc.Authenticate(ctx, auth.KindUser, "tok")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rider token rejected on captain routes", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(claims, nil)
		deps.revocations.On("IsRevoked", ctx, tokenHash).Return(false, nil)
		deps.users.On("GetByID", ctx, userID).Return(user, nil)

		_, _, err := svc.Authenticate(ctx, auth.KindCaptain, "tok")
		assert.ErrorIs(t, err, auth.ErrTokenKindMismatch)
		assert.True(t, auth.IsTokenError(err))
		errutil.AssertErrorCode(t, err, "TOKEN_KIND_MISMATCH")
	})

	t.Run("revocation store failure is not a token error", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(claims, nil)
		deps.revocations.On("IsRevoked", ctx, tokenHash).Return(false, errors.New("redis down"))

		_, _, err := svc.Authenticate(ctx, auth.KindUser, "tok")
		require.Error(t, err)
		assert.False(t, auth.IsTokenError(err))
		errutil.AssertErrorCode(t, err, "AUTH_REVOCATION_CHECK_FAILED")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	validClaims := func() *auth.Claims {
		c := &auth.Claims{UserID: userID.String()}
		c.ExpiresAt = jwt.NewNumericDate(expiresAt)
		return c
	}

	t.Run("revokes token until expiry", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(validClaims(), nil)
		deps.revocations.On("Revoke", ctx, mock.MatchedBy(func(r *auth.Revocation) bool {
			return r.TokenHash == auth.HashToken("tok") &&
				r.UserID == userID &&
				r.ExpiresAt.Equal(expiresAt.Add(auth.TokenLeeway))
		})).Return(nil)

		require.NoError(t, svc.Logout(ctx, "tok"))
	})

	t.Run("expired token is a no-op", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(nil, oops.Code("TOKEN_EXPIRED").Wrap(auth.ErrTokenExpired))

		assert.NoError(t, svc.Logout(ctx, "tok"))
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(nil, oops.Code("TOKEN_INVALID").Wrap(auth.ErrTokenInvalid))

		assert.ErrorIs(t, svc.Logout(ctx, "tok"), auth.ErrTokenInvalid)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, deps := newTestService(t)

		deps.tokens.On("Parse", "tok").Return(validClaims(), nil)
		deps.revocations.On("Revoke", ctx, mock.AnythingOfType("*auth.Revocation")).Return(errors.New("db down"))

		err := svc.Logout(ctx, "tok")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGOUT_FAILED")
	})
}

func TestService_LogoutHoldsThroughLeeway(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	hasher, err := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewJWTIssuer("0123456789abcdef0123456789abcdef", auth.WithClock(clock))
	require.NoError(t, err)
	revocations := memory.NewRevocationStore()
	svc, err := auth.NewService(memory.NewUserRepository(), revocations, hasher, issuer)
	require.NoError(t, err)

	session, err := svc.Register(ctx, auth.Registration{
		Kind:     auth.KindUser,
		FullName: auth.FullName{FirstName: "Ravi"},
		Email:    "ravi@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, session.Token))

	// Still inside the leeway, so Parse accepts the token.
	now = session.ExpiresAt.Add(10 * time.Second)
	_, err = revocations.DeleteExpired(ctx, now)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, auth.KindUser, session.Token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	errutil.AssertErrorCode(t, err, "TOKEN_REVOKED")

	t.Run("logout inside the leeway still revokes", func(t *testing.T) {
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		late, err := svc.Login(ctx, auth.LoginInput{Kind: auth.KindUser, Email: "ravi@example.com", Password: "secret123"})
		require.NoError(t, err)

		now = late.ExpiresAt.Add(5 * time.Second)
		require.NoError(t, svc.Logout(ctx, late.Token))

		_, _, err = svc.Authenticate(ctx, auth.KindUser, late.Token)
		assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	})
}

func TestService_Sockets(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("attach", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.users.On("SetSocketID", ctx, userID, "sock-1").Return(nil)
		require.NoError(t, svc.AttachSocket(ctx, userID, "sock-1"))
	})

	t.Run("attach rejects empty id", func(t *testing.T) {
		svc, _ := newTestService(t)
		err := svc.AttachSocket(ctx, userID, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_SOCKET")
	})

	t.Run("detach failure wraps", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.users.On("ClearSocketID", ctx, userID, "sock-1").Return(auth.ErrNotFound)
		err := svc.DetachSocket(ctx, userID, "sock-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "AUTH_SOCKET_DETACH_FAILED")
	})
}
