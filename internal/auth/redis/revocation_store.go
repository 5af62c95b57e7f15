// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package redis implements auth.RevocationStore on Redis. Each revoked
// token is a key that expires together with the token, so no pruning is
// needed.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
)

// KeyPrefix namespaces revocation keys.
const KeyPrefix = "movex:revoked:"

// commands is the subset of redis.Cmdable the store uses.
type commands interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewClient parses url, connects and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Errorf("redis URL cannot be empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Wrap(err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return client, nil
}

// RevocationStore implements auth.RevocationStore with expiring keys.
type RevocationStore struct {
	client commands
	now    func() time.Time
}

var _ auth.RevocationStore = (*RevocationStore)(nil)

// NewRevocationStore creates a RevocationStore on client.
func NewRevocationStore(client commands) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

// Revoke stores the token hash until the token expires. Tokens that have
// already expired need no entry.
func (s *RevocationStore) Revoke(ctx context.Context, rev *auth.Revocation) error {
	ttl := rev.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.SetNX(ctx, KeyPrefix+rev.TokenHash, rev.UserID.String(), ttl).Err(); err != nil {
		return oops.Code("REVOCATION_STORE_FAILED").
			With("operation", "set revocation key").
			With("user_id", rev.UserID.String()).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether a key exists for tokenHash.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := s.client.Exists(ctx, KeyPrefix+tokenHash).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_LOOKUP_FAILED").
			With("operation", "check revocation key").
			Wrap(err)
	}
	return n > 0, nil
}
