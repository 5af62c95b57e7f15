// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/movex/movex/internal/config"
	"github.com/movex/movex/internal/store"
)

// Migrations abstracts store.Migrator for the migrate commands.
type Migrations interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// migratorFactory is replaced in tests.
var migratorFactory = func(databaseURL string) (Migrations, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back the PostgreSQL schema migrations. Without a
subcommand all pending migrations are applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrations) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrations) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back the last --steps migrations, or every migration with --all.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			return withMigrator(cmd, func(m Migrations) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					if err := m.Down(); err != nil {
						return err
					}
				} else {
					if steps < 1 {
						return oops.Code("CONFIG_INVALID").With("steps", steps).Errorf("--steps must be at least 1")
					}
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					if err := m.Steps(-steps); err != nil {
						return err
					}
				}
				return printVersion(cmd, m)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().Bool("all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrations) error {
				if err := printVersion(cmd, m); err != nil {
					return err
				}
				applied, err := m.AppliedMigrations()
				if err != nil {
					return err
				}
				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				for _, v := range applied {
					cmd.Printf("  [applied] %s\n", migrationLabel(v))
				}
				for _, v := range pending {
					cmd.Printf("  [pending] %s\n", migrationLabel(v))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag. Use
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			return withMigrator(cmd, func(m Migrations) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(Migrations) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.Storage.PostgresURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "storage.postgres_url").
			Errorf("a PostgreSQL URL is required; set DATABASE_URL")
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		cmd.PrintErrf("note: storage.driver is %q; migrating PostgreSQL anyway\n", cfg.Storage.Driver)
	}

	cmd.Println("Connecting to database...")
	m, err := migratorFactory(cfg.Storage.PostgresURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			cmd.PrintErrf("warning: %v\n", err)
		}
	}()

	return fn(m)
}

func printVersion(cmd *cobra.Command, m Migrations) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		cmd.Println("Schema version: none")
	case dirty:
		cmd.Printf("Schema version: %d (%s, dirty)\n", version, migrationLabel(version))
	default:
		cmd.Printf("Schema version: %d (%s)\n", version, migrationLabel(version))
	}
	return nil
}

func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return strconv.FormatUint(uint64(version), 10)
	}
	return name
}
