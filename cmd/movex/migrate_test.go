// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movex/movex/pkg/errutil"
)

type fakeMigrations struct {
	version uint
	dirty   bool
	applied []uint
	pending []uint

	upCalls   int
	downCalls int
	steps     []int
	forced    []int
	closed    bool
}

func (f *fakeMigrations) Up() error {
	f.upCalls++
	f.applied = append(f.applied, f.pending...)
	if len(f.applied) > 0 {
		f.version = f.applied[len(f.applied)-1]
	}
	f.pending = nil
	return nil
}

func (f *fakeMigrations) Down() error {
	f.downCalls++
	f.version = 0
	return nil
}

func (f *fakeMigrations) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrations) Version() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrations) Force(v int) error {
	f.forced = append(f.forced, v)
	f.version = uint(v)
	f.dirty = false
	return nil
}

func (f *fakeMigrations) PendingMigrations() ([]uint, error) { return f.pending, nil }
func (f *fakeMigrations) AppliedMigrations() ([]uint, error) { return f.applied, nil }

func (f *fakeMigrations) Close() error {
	f.closed = true
	return nil
}

func useFakeMigrator(t *testing.T, m *fakeMigrations) *string {
	t.Helper()
	var gotURL string
	prev := migratorFactory
	migratorFactory = func(databaseURL string) (Migrations, error) {
		gotURL = databaseURL
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = prev })
	return &gotURL
}

func TestMigrate_UpAppliesPending(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://movex@localhost:5432/movex")
	m := &fakeMigrations{pending: []uint{1}}
	gotURL := useFakeMigrator(t, m)

	for _, args := range [][]string{{"migrate"}, {"migrate", "up"}} {
		res := runCLI(t, dir, "", args...)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Schema version: 1")
	}
	assert.Equal(t, 2, m.upCalls)
	assert.True(t, m.closed)
	assert.Equal(t, "postgres://movex@localhost:5432/movex", *gotURL)
}

func TestMigrate_PrefixedURLWins(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://plain/db")
	t.Setenv("MOVEX_DATABASE_URL", "postgres://prefixed/db")
	gotURL := useFakeMigrator(t, &fakeMigrations{})

	res := runCLI(t, dir, "", "migrate", "status")

	require.NoError(t, res.err)
	assert.Equal(t, "postgres://prefixed/db", *gotURL)
	assert.Contains(t, res.stdout, "Schema version: none")
}

func TestMigrate_Down(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/movex")

	t.Run("default rolls back one step", func(t *testing.T) {
		m := &fakeMigrations{version: 1}
		useFakeMigrator(t, m)
		res := runCLI(t, dir, "", "migrate", "down")
		require.NoError(t, res.err)
		assert.Equal(t, []int{-1}, m.steps)
	})

	t.Run("steps flag", func(t *testing.T) {
		m := &fakeMigrations{version: 1}
		useFakeMigrator(t, m)
		res := runCLI(t, dir, "", "migrate", "down", "--steps", "3")
		require.NoError(t, res.err)
		assert.Equal(t, []int{-3}, m.steps)
	})

	t.Run("all", func(t *testing.T) {
		m := &fakeMigrations{version: 1}
		useFakeMigrator(t, m)
		res := runCLI(t, dir, "", "migrate", "down", "--all")
		require.NoError(t, res.err)
		assert.Equal(t, 1, m.downCalls)
		assert.Empty(t, m.steps)
	})

	t.Run("zero steps rejected", func(t *testing.T) {
		m := &fakeMigrations{}
		useFakeMigrator(t, m)
		res := runCLI(t, dir, "", "migrate", "down", "--steps", "0")
		errutil.AssertErrorCode(t, res.err, "CONFIG_INVALID")
		assert.Empty(t, m.steps)
	})
}

func TestMigrate_Status(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/movex")
	useFakeMigrator(t, &fakeMigrations{version: 1, dirty: true, applied: []uint{1}, pending: []uint{2}})

	res := runCLI(t, dir, "", "migrate", "status")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "dirty")
	assert.Contains(t, res.stdout, "[applied] 000001_create_users")
	assert.Contains(t, res.stdout, "[pending] 000002_create_revoked_tokens")
}

func TestMigrate_Force(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/movex")

	tests := []struct {
		name        string
		arg         string
		wantForced  []int
		wantErrCode string
	}{
		{name: "valid version", arg: "3", wantForced: []int{3}},
		{name: "zero", arg: "0", wantForced: []int{0}},
		{name: "non-numeric", arg: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "trailing garbage", arg: "3abc", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrations{}
			useFakeMigrator(t, m)

			res := runCLI(t, dir, "", "migrate", "force", tt.arg)

			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, res.err, tt.wantErrCode)
				assert.Empty(t, m.forced)
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantForced, m.forced)
		})
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	dir := isolate(t)
	useFakeMigrator(t, &fakeMigrations{})

	res := runCLI(t, dir, "", "migrate", "up")

	errutil.AssertErrorCode(t, res.err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, res.err, "key", "storage.postgres_url")
}

func TestMigrate_FactoryFailure(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/movex")
	prev := migratorFactory
	migratorFactory = func(string) (Migrations, error) { return nil, errors.New("dial tcp: refused") }
	t.Cleanup(func() { migratorFactory = prev })

	res := runCLI(t, dir, "", "migrate", "up")

	errutil.AssertErrorCode(t, res.err, "DB_CONNECT_FAILED")
}

func TestMigrationLabel_FallsBackToNumber(t *testing.T) {
	assert.Equal(t, "999999", migrationLabel(999999))
}
