// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token configuration.
const (
	TokenExpiry       = 24 * time.Hour
	TokenLeeway       = 30 * time.Second
	MinTokenSecretLen = 32
)

// Claims is the JWT payload. The only private claim is the account id,
// stored under "_id".
type Claims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	// Issue creates a signed token for the account.
	Issue(userID ulid.ULID) (token string, expiresAt time.Time, err error)

	// Parse verifies a token and returns its claims. Errors wrap
	// ErrTokenInvalid or ErrTokenExpired.
	Parse(token string) (*Claims, error)
}

// JWTIssuer implements TokenIssuer with HS256 JWTs.
type JWTIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// JWTOption configures a JWTIssuer.
type JWTOption func(*JWTIssuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) JWTOption {
	return func(i *JWTIssuer) { i.now = now }
}

// NewJWTIssuer creates a JWTIssuer. The secret must be at least
// MinTokenSecretLen bytes.
func NewJWTIssuer(secret string, opts ...JWTOption) (*JWTIssuer, error) {
	if len(secret) < MinTokenSecretLen {
		return nil, oops.Code("TOKEN_SECRET_TOO_SHORT").
			With("min", MinTokenSecretLen).
			Errorf("token secret must be at least %d characters", MinTokenSecretLen)
	}
	i := &JWTIssuer{
		secret: []byte(secret),
		expiry: TokenExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue creates a signed token for userID that expires after TokenExpiry.
func (i *JWTIssuer) Issue(userID ulid.ULID) (string, time.Time, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return "", time.Time{}, oops.Code("TOKEN_INVALID_SUBJECT").Errorf("user ID cannot be zero")
	}

	now := i.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(i.expiry)
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm and expiry, then returns the claims.
func (i *JWTIssuer) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, oops.Code("TOKEN_MISSING").Wrap(ErrTokenMissing)
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(TokenLeeway),
		jwt.WithTimeFunc(i.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", err.Error()).
			Wrap(ErrTokenInvalid)
	}

	if _, err := ulid.Parse(claims.UserID); err != nil {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "malformed account id").
			Wrap(ErrTokenInvalid)
	}
	return claims, nil
}

// AccountID returns the account id carried by the claims.
func (c *Claims) AccountID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.UserID)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}
	return id, nil
}

// Expiry returns the expiry time carried by the claims.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
