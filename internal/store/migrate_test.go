// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/pkg/errutil"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantDialect Dialect
		wantURL     string
		wantErr     bool
	}{
		{"postgres scheme", "postgres://u:p@db:5432/auth", DialectPostgres, "pgx5://u:p@db:5432/auth", false},
		{"postgresql scheme", "postgresql://db/auth", DialectPostgres, "pgx5://db/auth", false},
		{"pgx5 scheme kept", "pgx5://db/auth", DialectPostgres, "pgx5://db/auth", false},
		{"sqlite scheme", "sqlite:///var/lib/auth.db", DialectSQLite, "sqlite:///var/lib/auth.db", false},
		{"bare path", "/var/lib/auth.db", DialectSQLite, "sqlite:///var/lib/auth.db", false},
		{"unknown scheme", "mysql://db/auth", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, u, err := ParseDatabaseURL(tt.in)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "MIGRATION_UNSUPPORTED_URL")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDialect, dialect)
			assert.Equal(t, tt.wantURL, u)
		})
	}
}

func TestNewMigrator_UnsupportedURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	errutil.AssertErrorCode(t, err, "MIGRATION_UNSUPPORTED_URL")
}

func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	// Connection fails, but the scheme must be recognized.
	_, err := NewMigrator("postgresql://localhost:1/testdb?connect_timeout=1")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

func TestNewMigrator_SQLiteFullCycle(t *testing.T) {
	path := t.TempDir() + "/auth.db"

	m, err := NewMigrator(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	assert.Equal(t, DialectSQLite, m.Dialect())

	pending, err := m.PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, pending)

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, m.Steps(-1))
	applied, err := m.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, applied)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
	closed         bool
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }

func (m *mockMigrate) Close() (error, error) {
	m.closed = true
	return m.closeSourceErr, m.closeDbErr
}

func newTestMigrator(mm *mockMigrate) *Migrator {
	return &Migrator{m: mm, dialect: DialectPostgres}
}

func TestMigrator_Up(t *testing.T) {
	require.NoError(t, newTestMigrator(&mockMigrate{}).Up())
	require.NoError(t, newTestMigrator(&mockMigrate{upErr: migrate.ErrNoChange}).Up(),
		"ErrNoChange should be treated as success")

	err := newTestMigrator(&mockMigrate{upErr: errors.New("database locked")}).Up()
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigrator_Down(t *testing.T) {
	require.NoError(t, newTestMigrator(&mockMigrate{}).Down())
	require.NoError(t, newTestMigrator(&mockMigrate{downErr: migrate.ErrNoChange}).Down())

	err := newTestMigrator(&mockMigrate{downErr: errors.New("constraint violation")}).Down()
	errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Steps(t *testing.T) {
	require.NoError(t, newTestMigrator(&mockMigrate{}).Steps(1))
	require.NoError(t, newTestMigrator(&mockMigrate{stepsErr: migrate.ErrNoChange}).Steps(0),
		"Steps(0) should be a no-op")

	err := newTestMigrator(&mockMigrate{stepsErr: errors.New("invalid step")}).Steps(5)
	errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_FAILED")
	errutil.AssertErrorContext(t, err, "steps", 5)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		version, dirty, err := newTestMigrator(&mockMigrate{versionVal: 2}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.False(t, dirty)
	})

	t.Run("dirty", func(t *testing.T) {
		version, dirty, err := newTestMigrator(&mockMigrate{versionVal: 1, dirty: true}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.True(t, dirty)
	})

	t.Run("nil version is zero", func(t *testing.T) {
		version, dirty, err := newTestMigrator(&mockMigrate{versionErr: migrate.ErrNilVersion}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := newTestMigrator(&mockMigrate{versionErr: errors.New("connection lost")}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	require.NoError(t, newTestMigrator(&mockMigrate{}).Force(1))

	err := newTestMigrator(&mockMigrate{forceErr: errors.New("invalid version")}).Force(1)
	errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")

	err = newTestMigrator(&mockMigrate{}).Force(-1)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mm        *mockMigrate
		component string
	}{
		{"ok", &mockMigrate{}, ""},
		{"source", &mockMigrate{closeSourceErr: errors.New("source close failed")}, "source"},
		{"database", &mockMigrate{closeDbErr: errors.New("db close failed")}, "database"},
		{"both", &mockMigrate{
			closeSourceErr: errors.New("source close failed"),
			closeDbErr:     errors.New("db close failed"),
		}, "both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestMigrator(tt.mm).Close()
			assert.True(t, tt.mm.closed)
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
	tests := []struct {
		name        string
		mm          *mockMigrate
		wantPending []uint
		wantApplied []uint
	}{
		{"fresh", &mockMigrate{versionErr: migrate.ErrNilVersion}, []uint{1, 2}, nil},
		{"partial", &mockMigrate{versionVal: 1}, []uint{2}, []uint{1}},
		{"latest", &mockMigrate{versionVal: 2}, nil, []uint{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMigrator(tt.mm)

			pending, err := m.PendingMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.wantPending, pending)

			applied, err := m.AppliedMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
		})
	}

	t.Run("version error carries operation", func(t *testing.T) {
		m := newTestMigrator(&mockMigrate{versionErr: errors.New("connection lost")})

		_, err := m.PendingMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get pending migrations")

		_, err = m.AppliedMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get applied migrations")
	})
}

func TestMigrationName(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		version  uint
		expected string
	}{
		{DialectPostgres, 1, "000001_create_accounts"},
		{DialectPostgres, 2, "000002_login_tracking"},
		{DialectSQLite, 1, "000001_create_accounts"},
		{DialectSQLite, 999, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.dialect, tt.version), func(t *testing.T) {
			name, err := MigrationName(tt.dialect, tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}

	_, err := MigrationName(Dialect("oracle"), 1)
	errutil.AssertErrorCode(t, err, "MIGRATION_READ_FAILED")
}

func TestMigrationVersions_ReturnsCopy(t *testing.T) {
	v1, err := migrationVersions(DialectPostgres)
	require.NoError(t, err)
	require.NotEmpty(t, v1)

	original := v1[0]
	v1[0] = 99999

	v2, err := migrationVersions(DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, original, v2[0], "mutation should not affect cache")
}
