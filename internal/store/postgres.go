// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

// Package store owns the PostgreSQL connection pool and the schema
// migrations for the account and revocation tables.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 5 * time.Second
)

type connectConfig struct {
	attempts uint64
	backoff  time.Duration
	maxConns int32
	logger   *slog.Logger
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithConnectAttempts sets how many times the initial ping is retried.
func WithConnectAttempts(n uint64) ConnectOption {
	return func(c *connectConfig) { c.attempts = n }
}

// WithConnectBackoff sets the base delay of the exponential ping backoff.
func WithConnectBackoff(d time.Duration) ConnectOption {
	return func(c *connectConfig) { c.backoff = d }
}

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) ConnectOption {
	return func(c *connectConfig) { c.maxConns = n }
}

// WithConnectLogger logs each failed ping attempt.
func WithConnectLogger(l *slog.Logger) ConnectOption {
	return func(c *connectConfig) { c.logger = l }
}

// Connect opens a pgx pool for dsn and waits until the database answers a
// ping. The database often starts alongside the server, so failed pings are
// retried with exponential backoff before giving up.
func Connect(ctx context.Context, dsn string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	cfg := connectConfig{
		attempts: DefaultConnectAttempts,
		backoff:  DefaultConnectBackoff,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if cfg.maxConns > 0 {
		poolCfg.MaxConns = cfg.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	if err := pingWithRetry(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, p pinger, cfg connectConfig) error {
	backoff := retry.NewExponential(cfg.backoff)
	backoff = retry.WithCappedDuration(maxConnectBackoff, backoff)
	backoff = retry.WithMaxRetries(cfg.attempts, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			cfg.logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
