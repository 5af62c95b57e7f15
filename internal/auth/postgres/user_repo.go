// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
)

const userColumns = `id, kind, first_name, last_name, email, socket_id, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new account. The unique index on (kind, LOWER(email))
// decides concurrent registrations of the same address.
func (r *UserRepository) Create(ctx context.Context, creds *auth.Credentials) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, kind, first_name, last_name, email, password_hash,
			socket_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		creds.ID.String(),
		string(creds.Kind),
		creds.FullName.FirstName,
		creds.FullName.LastName,
		creds.Email,
		creds.PasswordHash,
		creds.SocketID,
		creds.CreatedAt,
		creds.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
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
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves an account by kind and email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE kind = $1 AND LOWER(email) = LOWER($2)
	`, string(kind), email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("kind", string(kind)).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// GetCredentialsByEmail retrieves an account and its password hash.
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.Credentials, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash
		FROM users
		WHERE kind = $1 AND LOWER(email) = LOWER($2)
	`, string(kind), email)

	var (
		creds auth.Credentials
		raw   userRow
	)
	err := row.Scan(raw.dest(&creds.PasswordHash)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("kind", string(kind)).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get credentials by email").
			With("email", email).
			Wrap(err)
	}

	user, err := raw.user()
	if err != nil {
		return nil, err
	}
	creds.User = *user
	return &creds, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetSocketID records the account's live connection.
func (r *UserRepository) SetSocketID(ctx context.Context, id ulid.ULID, socketID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET socket_id = $2, updated_at = $3 WHERE id = $1
	`, id.String(), socketID, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "set socket id").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ClearSocketID clears the live connection if it is still socketID. A
// newer connection or a missing account leaves nothing to do.
func (r *UserRepository) ClearSocketID(ctx context.Context, id ulid.ULID, socketID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET socket_id = NULL, updated_at = $3
		WHERE id = $1 AND socket_id = $2
	`, id.String(), socketID, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "clear socket id").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// userRow holds the raw column values of the public projection.
type userRow struct {
	id        string
	kind      string
	firstName string
	lastName  string
	email     string
	socketID  *string
	createdAt time.Time
	updatedAt time.Time
}

func (u *userRow) dest(extra ...any) []any {
	return append([]any{
		&u.id, &u.kind, &u.firstName, &u.lastName, &u.email,
		&u.socketID, &u.createdAt, &u.updatedAt,
	}, extra...)
}

func (u *userRow) user() (*auth.User, error) {
	id, err := ulid.Parse(u.id)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ROW").
			With("operation", "parse user id").
			With("id", u.id).
			Wrap(err)
	}
	return &auth.User{
		ID:   id,
		Kind: auth.Kind(u.kind),
		FullName: auth.FullName{
			FirstName: u.firstName,
			LastName:  u.lastName,
		},
		Email:     u.email,
		SocketID:  u.socketID,
		CreatedAt: u.createdAt,
		UpdatedAt: u.updatedAt,
	}, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var raw userRow
	if err := row.Scan(raw.dest()...); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	return raw.user()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
