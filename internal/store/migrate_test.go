// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movex/movex/pkg/errutil"
)

type fakeMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	steps          []int
	version        uint
	dirty          bool
	versionErr     error
	forceErr       error
	forced         []int
	closeSourceErr error
	closeDBErr     error
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Steps(n int) error {
	f.steps = append(f.steps, n)
	return f.stepsErr
}
func (f *fakeMigrate) Version() (uint, bool, error) { return f.version, f.dirty, f.versionErr }
func (f *fakeMigrate) Force(v int) error {
	f.forced = append(f.forced, v)
	return f.forceErr
}
func (f *fakeMigrate) Close() (error, error) { return f.closeSourceErr, f.closeDBErr }

func TestNewMigrator_RejectsUnknownScheme(t *testing.T) {
	_, err := NewMigrator("mysql://localhost:3306/movex")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/movex", "pgx5://u:p@db:5432/movex"},
		{"postgresql://u:p@db:5432/movex", "pgx5://u:p@db:5432/movex"},
		{"pgx5://db/movex", "pgx5://db/movex"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrator_UpDown(t *testing.T) {
	boom := errors.New("relation locked")

	tests := []struct {
		name     string
		fake     *fakeMigrate
		run      func(*Migrator) error
		wantCode string
	}{
		{"up applies", &fakeMigrate{}, (*Migrator).Up, ""},
		{"up with nothing pending", &fakeMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up failure", &fakeMigrate{upErr: boom}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down rolls back", &fakeMigrate{}, (*Migrator).Down, ""},
		{"down with nothing applied", &fakeMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down failure", &fakeMigrate{downErr: boom}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.fake})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestMigrator_Steps(t *testing.T) {
	t.Run("zero is a no-op", func(t *testing.T) {
		fake := &fakeMigrate{}
		require.NoError(t, (&Migrator{m: fake}).Steps(0))
		assert.Empty(t, fake.steps)
	})

	t.Run("forwards n", func(t *testing.T) {
		fake := &fakeMigrate{}
		require.NoError(t, (&Migrator{m: fake}).Steps(-1))
		assert.Equal(t, []int{-1}, fake.steps)
	})

	t.Run("failure carries code", func(t *testing.T) {
		fake := &fakeMigrate{stepsErr: errors.New("no migration")}
		err := (&Migrator{m: fake}).Steps(2)
		errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_FAILED")
		errutil.AssertErrorContext(t, err, "steps", 2)
	})
}

func TestMigrator_Version(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("dirty version", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &fakeMigrate{version: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		_, _, err := (&Migrator{m: &fakeMigrate{versionErr: errors.New("conn reset")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	fake := &fakeMigrate{}
	m := &Migrator{m: fake}

	err := m.Force(-1)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Empty(t, fake.forced)

	require.NoError(t, m.Force(1))
	assert.Equal(t, []int{1}, fake.forced)

	fake.forceErr = errors.New("lock timeout")
	errutil.AssertErrorCode(t, m.Force(1), "MIGRATION_FORCE_FAILED")
}

func TestMigrator_Close(t *testing.T) {
	srcErr := errors.New("source")
	dbErr := errors.New("db")

	tests := []struct {
		name      string
		fake      *fakeMigrate
		component string
	}{
		{"clean", &fakeMigrate{}, ""},
		{"source", &fakeMigrate{closeSourceErr: srcErr}, "source"},
		{"database", &fakeMigrate{closeDBErr: dbErr}, "database"},
		{"both", &fakeMigrate{closeSourceErr: srcErr, closeDBErr: dbErr}, "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.fake}).Close()
			if tt.component == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}
}

func TestMigrator_PendingAndApplied(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{version: 1}}

	applied, err := m.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, applied)

	pending, err := m.PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, pending)

	fresh := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
	pending, err = fresh.PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, pending)

	broken := &Migrator{m: &fakeMigrate{versionErr: errors.New("down")}}
	_, err = broken.PendingMigrations()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_create_users", name)

	name, err = MigrationName(2)
	require.NoError(t, err)
	assert.Equal(t, "000002_create_revoked_tokens", name)

	name, err = MigrationName(99)
	require.NoError(t, err)
	assert.Empty(t, name)
}
