// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/movex/movex/internal/auth"
	"github.com/movex/movex/internal/auth/memory"
	"github.com/movex/movex/internal/auth/mongodb"
	"github.com/movex/movex/internal/auth/postgres"
	authredis "github.com/movex/movex/internal/auth/redis"
	"github.com/movex/movex/internal/config"
	"github.com/movex/movex/internal/store"
)

// Backend is the storage the API runs on.
type Backend struct {
	Users       auth.UserRepository
	Revocations auth.RevocationStore
	// Pruner is nil when revocations expire on their own.
	Pruner auth.RevocationPruner

	checks  []func(ctx context.Context) error
	closers []func()
}

// Ready pings every backing service.
func (b *Backend) Ready(ctx context.Context) error {
	for _, check := range b.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the account store and revocation list selected by
// cfg. On error everything opened so far is closed.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Backend, err error) {
	b := &Backend{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.Storage.AutoMigrate {
			if err := migrateUp(cfg.Storage.PostgresURL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := store.Connect(ctx, cfg.Storage.PostgresURL, store.WithConnectLogger(logger))
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.checks = append(b.checks, pool.Ping)
		revocations := postgres.NewRevocationRepository(pool)
		b.Users, b.Revocations, b.Pruner = postgres.NewUserRepository(pool), revocations, revocations
		logger.Info("connected to postgres")

	case config.StorageMongo:
		client, db, err := mongodb.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := client.Disconnect(shutdownCtx); err != nil {
				logger.Warn("error disconnecting from mongo", "error", err)
			}
		})
		b.checks = append(b.checks, func(ctx context.Context) error { return client.Ping(ctx, nil) })
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		revocations := mongodb.NewRevocationRepository(db)
		b.Users, b.Revocations, b.Pruner = mongodb.NewUserRepository(db), revocations, revocations
		logger.Info("connected to mongo", "database", cfg.Storage.MongoDatabase)

	case config.StorageMemory:
		revocations := memory.NewRevocationStore()
		b.Users, b.Revocations, b.Pruner = memory.NewUserRepository(), revocations, revocations
		logger.Warn("using in-memory storage; accounts are lost on exit")

	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Storage.Driver).Errorf("unknown storage driver")
	}

	if cfg.Revocation.Driver == config.RevocationRedis {
		client, err := authredis.NewClient(ctx, cfg.Revocation.RedisURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		})
		b.checks = append(b.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		b.Revocations = authredis.NewRevocationStore(client)
		b.Pruner = nil
		logger.Info("revocations stored in redis")
	}
	return b, nil
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("error closing migrator", "error", err)
		}
	}()
	if err := migrator.Up(); err != nil {
		return err
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}
