// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package mongodb

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/movex/movex/internal/auth"
)

type revocationDoc struct {
	TokenHash string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	RevokedAt time.Time `bson:"revoked_at"`
}

// RevocationRepository implements auth.RevocationStore and
// auth.RevocationPruner on MongoDB. The TTL index from EnsureIndexes also
// expires documents server-side; DeleteExpired covers the gap until the
// TTL monitor runs.
type RevocationRepository struct {
	coll *mongo.Collection
}

var (
	_ auth.RevocationStore  = (*RevocationRepository)(nil)
	_ auth.RevocationPruner = (*RevocationRepository)(nil)
)

// NewRevocationRepository creates a new RevocationRepository.
func NewRevocationRepository(db *mongo.Database) *RevocationRepository {
	return &RevocationRepository{coll: db.Collection(RevocationsCollection)}
}

// Revoke stores the revocation; revoking twice keeps the first document.
func (r *RevocationRepository) Revoke(ctx context.Context, rev *auth.Revocation) error {
	_, err := r.coll.InsertOne(ctx, revocationDoc{
		TokenHash: rev.TokenHash,
		UserID:    rev.UserID.String(),
		ExpiresAt: rev.ExpiresAt,
		RevokedAt: rev.RevokedAt,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return oops.Code("REVOCATION_STORE_FAILED").
			With("operation", "insert revocation").
			With("user_id", rev.UserID.String()).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether tokenHash has been revoked.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.D{{Key: "_id", Value: tokenHash}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").
			With("operation", "check revocation").
			Wrap(err)
	}
	return n > 0, nil
}

// DeleteExpired removes revocations whose token expired before the cutoff.
func (r *RevocationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: before}}},
	})
	if err != nil {
		return 0, oops.Code("REVOCATION_PRUNE_FAILED").
			With("operation", "delete expired revocations").
			Wrap(err)
	}
	return res.DeletedCount, nil
}
