// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/movex/movex/internal/auth"
)

type fullNameDoc struct {
	FirstName string `bson:"firstname"`
	LastName  string `bson:"lastname,omitempty"`
}

type userDoc struct {
	ID        string      `bson:"_id"`
	Kind      string      `bson:"kind"`
	FullName  fullNameDoc `bson:"fullname"`
	Email     string      `bson:"email"`
	Password  string      `bson:"password,omitempty"`
	SocketID  *string     `bson:"socketId,omitempty"`
	CreatedAt time.Time   `bson:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

func toUserDoc(creds *auth.Credentials) userDoc {
	return userDoc{
		ID:   creds.ID.String(),
		Kind: string(creds.Kind),
		FullName: fullNameDoc{
			FirstName: creds.FullName.FirstName,
			LastName:  creds.FullName.LastName,
		},
		Email:     creds.Email,
		Password:  creds.PasswordHash,
		SocketID:  creds.SocketID,
		CreatedAt: creds.CreatedAt,
		UpdatedAt: creds.UpdatedAt,
	}
}

func (d *userDoc) credentials() (*auth.Credentials, error) {
	id, err := ulid.Parse(d.ID)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ROW").
			With("operation", "parse user id").
			With("id", d.ID).
			Wrap(err)
	}
	return &auth.Credentials{
		User: auth.User{
			ID:   id,
			Kind: auth.Kind(d.Kind),
			FullName: auth.FullName{
				FirstName: d.FullName.FirstName,
				LastName:  d.FullName.LastName,
			},
			Email:     d.Email,
			SocketID:  d.SocketID,
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		},
		PasswordHash: d.Password,
	}, nil
}

// withoutPassword is the default projection of account reads.
var withoutPassword = bson.D{{Key: "password", Value: 0}}

// UserRepository implements auth.UserRepository on a MongoDB collection.
type UserRepository struct {
	coll *mongo.Collection
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository on db's users collection.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// Create inserts the account. The unique (kind, email) index rejects
// duplicates.
func (r *UserRepository) Create(ctx context.Context, creds *auth.Credentials) error {
	if _, err := r.coll.InsertOne(ctx, toUserDoc(creds)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oops.Code("AUTH_EMAIL_TAKEN").
				With("kind", string(creds.Kind)).
				With("email", creds.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", creds.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	creds, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, false)
	if err != nil {
		return nil, oops.With("id", id.String()).Wrap(err)
	}
	return &creds.User, nil
}

// GetByEmail retrieves an account by kind and email.
func (r *UserRepository) GetByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.User, error) {
	creds, err := r.findOne(ctx, emailFilter(kind, email), false)
	if err != nil {
		return nil, oops.With("kind", string(kind)).With("email", email).Wrap(err)
	}
	return &creds.User, nil
}

// GetCredentialsByEmail retrieves an account together with its password.
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.Credentials, error) {
	creds, err := r.findOne(ctx, emailFilter(kind, email), true)
	if err != nil {
		return nil, oops.With("kind", string(kind)).With("email", email).Wrap(err)
	}
	return creds, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.updateOne(ctx, id, "update password", bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
	})
}

// SetSocketID records the account's live connection.
func (r *UserRepository) SetSocketID(ctx context.Context, id ulid.ULID, socketID string) error {
	return r.updateOne(ctx, id, "set socket id", bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "socketId", Value: socketID},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}},
	})
}

// ClearSocketID removes the live connection if it is still socketID.
func (r *UserRepository) ClearSocketID(ctx context.Context, id ulid.ULID, socketID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}, {Key: "socketId", Value: socketID}},
		bson.D{
			{Key: "$unset", Value: bson.D{{Key: "socketId", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
		},
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "clear socket id").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, withPassword bool) (*auth.Credentials, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(withoutPassword)
	}

	var doc userDoc
	err := r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "find user").Wrap(err)
	}
	return doc.credentials()
}

func (r *UserRepository) updateOne(ctx context.Context, id ulid.ULID, operation string, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, update)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if res.MatchedCount == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func emailFilter(kind auth.Kind, email string) bson.D {
	return bson.D{
		{Key: "kind", Value: string(kind)},
		{Key: "email", Value: auth.NormalizeEmail(email)},
	}
}
