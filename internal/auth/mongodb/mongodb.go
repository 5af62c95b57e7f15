// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package mongodb implements the auth repositories on MongoDB.
//
// Accounts live in the "users" collection using the document shape of the
// original MoveX backend: fullname.firstname, fullname.lastname, email,
// password and socketId. The password field is excluded from every read
// except the credential lookup.
package mongodb

import (
	"context"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	UsersCollection         = "users"
	RevocationsCollection   = "revoked_tokens"
	usersKindEmailIndex     = "users_kind_email_unique"
	revocationsExpiresIndex = "revoked_tokens_expires_at_ttl"
)

// Connect opens a client for uri, verifies it with a ping and returns the
// named database. Callers own the client and must Disconnect it.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, oops.Code("MONGO_CONNECT_FAILED").With("operation", "connect").Wrap(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, oops.Code("MONGO_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the unique email index on accounts and the TTL index
// that lets MongoDB expire revocations on its own.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(usersKindEmailIndex),
	})
	if err != nil {
		return oops.Code("MONGO_INDEX_FAILED").
			With("collection", UsersCollection).
			Wrap(err)
	}

	_, err = db.Collection(RevocationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName(revocationsExpiresIndex),
	})
	if err != nil {
		return oops.Code("MONGO_INDEX_FAILED").
			With("collection", RevocationsCollection).
			Wrap(err)
	}
	return nil
}
