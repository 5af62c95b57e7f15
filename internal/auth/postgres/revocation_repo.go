// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
)

// RevocationRepository implements auth.RevocationStore and
// auth.RevocationPruner using PostgreSQL.
type RevocationRepository struct {
	pool poolIface
}

var (
	_ auth.RevocationStore  = (*RevocationRepository)(nil)
	_ auth.RevocationPruner = (*RevocationRepository)(nil)
)

// NewRevocationRepository creates a new RevocationRepository.
func NewRevocationRepository(pool poolIface) *RevocationRepository {
	return &RevocationRepository{pool: pool}
}

// Revoke stores the revocation. A second revocation of the same token keeps
// the first row.
func (r *RevocationRepository) Revoke(ctx context.Context, rev *auth.Revocation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (token_hash, user_id, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING
	`, rev.TokenHash, rev.UserID.String(), rev.ExpiresAt, rev.RevokedAt)
	if err != nil {
		return oops.Code("REVOCATION_STORE_FAILED").
			With("operation", "insert revocation").
			With("user_id", rev.UserID.String()).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether tokenHash has been revoked.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`,
		tokenHash,
	).Scan(&revoked)
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").
			With("operation", "check revocation").
			Wrap(err)
	}
	return revoked, nil
}

// DeleteExpired removes revocations whose token expired before the cutoff.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("REVOCATION_PRUNE_FAILED").
			With("operation", "delete expired revocations").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
