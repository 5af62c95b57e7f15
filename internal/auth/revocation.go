// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Revocation marks a token as logged out until it would have expired anyway.
type Revocation struct {
	TokenHash string
	UserID    ulid.ULID
	ExpiresAt time.Time
	RevokedAt time.Time
}

// NewRevocation creates a validated Revocation. The entry outlives the
// token's expiry by TokenLeeway, since Parse keeps accepting the token for
// that long.
func NewRevocation(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*Revocation, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("REVOCATION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("REVOCATION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("REVOCATION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &Revocation{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt.Add(TokenLeeway).UTC(),
		RevokedAt: time.Now().UTC(),
	}, nil
}

// HashToken computes the SHA256 hash of a token. Only hashes are stored.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RevocationStore records logged-out tokens.
type RevocationStore interface {
	// Revoke stores the revocation. Revoking the same token twice is not an error.
	Revoke(ctx context.Context, r *Revocation) error

	// IsRevoked reports whether the token hash has been revoked.
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// RevocationPruner removes revocations for tokens that have expired.
// Stores with native expiry do not need it.
type RevocationPruner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
