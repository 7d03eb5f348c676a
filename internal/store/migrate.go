// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect names a supported database backend.
type Dialect string

// Supported dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) dir() string {
	return "migrations/" + string(d)
}

// Migration versions per dialect, computed once since the embedded FS is immutable.
var (
	versionsMu    sync.Mutex
	versionsCache = map[Dialect][]uint{}
)

// migrateIface abstracts golang-migrate so the Migrator can be tested
// without a database.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator wraps golang-migrate for account schema management.
type Migrator struct {
	m       migrateIface
	dialect Dialect
}

// ParseDatabaseURL returns the dialect for databaseURL and the URL in the
// form golang-migrate expects. postgres:// and postgresql:// become pgx5://.
// sqlite:// URLs and bare file paths select the sqlite dialect.
func ParseDatabaseURL(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "pgx5://"):
		return DialectPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "postgres://"):
		return DialectPostgres, "pgx5://" + strings.TrimPrefix(databaseURL, "postgres://"), nil
	case strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, "pgx5://" + strings.TrimPrefix(databaseURL, "postgresql://"), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, databaseURL, nil
	case databaseURL != "" && !strings.Contains(databaseURL, "://"):
		return DialectSQLite, "sqlite://" + databaseURL, nil
	}
	return "", "", oops.Code("MIGRATION_UNSUPPORTED_URL").
		With("url_scheme", schemeOf(databaseURL)).
		Errorf("unsupported database url")
}

func schemeOf(u string) string {
	scheme, _, found := strings.Cut(u, "://")
	if !found {
		return ""
	}
	return scheme
}

// NewMigrator creates a Migrator for databaseURL. See ParseDatabaseURL for
// the accepted forms.
func NewMigrator(databaseURL string) (*Migrator, error) {
	dialect, migrateURL, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, dialect.dir())
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL)
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").
			With("operation", "initialize migrator").
			With("dialect", string(dialect)).
			Wrap(err)
	}

	return &Migrator{m: m, dialect: dialect}, nil
}

// NewSQLiteMigrator creates a Migrator on an already open SQLite handle.
// This is the only way to migrate an in-memory database. Closing the
// Migrator closes db.
func NewSQLiteMigrator(db *sql.DB) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, DialectSQLite.dir())
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").
			With("operation", "wrap sqlite handle").
			Wrap(err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(DialectSQLite), driver)
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").
			With("operation", "initialize migrator").
			With("dialect", string(DialectSQLite)).
			Wrap(err)
	}
	return &Migrator{m: m, dialect: DialectSQLite}, nil
}

// Dialect returns the backend the migrator targets.
func (m *Migrator) Dialect() Dialect {
	return m.dialect
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls back every migration. This drops the accounts table.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps applies n migrations. Positive n migrates up, negative n migrates down.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the current migration version and dirty state.
// Returns version 0 with dirty=false if no migrations have been applied.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations. It is the
// recovery path for a dirty database after a manual fix.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases resources.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// PendingMigrations returns the versions Up would apply, ascending.
func (m *Migrator) PendingMigrations() ([]uint, error) {
	current, all, err := m.versions()
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}
	var pending []uint
	for _, v := range all {
		if v > current {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// AppliedMigrations returns the versions already applied, ascending.
func (m *Migrator) AppliedMigrations() ([]uint, error) {
	current, all, err := m.versions()
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}
	var applied []uint
	for _, v := range all {
		if v <= current {
			applied = append(applied, v)
		}
	}
	return applied, nil
}

func (m *Migrator) versions() (uint, []uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return 0, nil, err
	}
	all, err := migrationVersions(m.dialect)
	if err != nil {
		return 0, nil, err
	}
	return current, all, nil
}

// migrationVersions returns the sorted versions embedded for dialect.
// The result is a copy; the cache is never exposed.
func migrationVersions(dialect Dialect) ([]uint, error) {
	versionsMu.Lock()
	defer versionsMu.Unlock()

	cached, ok := versionsCache[dialect]
	if !ok {
		var err error
		cached, err = loadMigrationVersions(dialect)
		if err != nil {
			return nil, err
		}
		versionsCache[dialect] = cached
	}
	return slices.Clone(cached), nil
}

// loadMigrationVersions parses NNNNNN_name.up.sql file names. Files that
// do not follow the pattern are logged and skipped.
func loadMigrationVersions(dialect Dialect) ([]uint, error) {
	entries, err := fs.ReadDir(migrationsFS, dialect.dir())
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").
			With("operation", "read migrations dir").
			With("dialect", string(dialect)).
			Wrap(err)
	}

	var versions []uint
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var version uint
		if _, err := fmt.Sscanf(name, "%06d", &version); err != nil {
			slog.Warn("migration file name doesn't match expected format, skipping",
				"filename", name,
				"expected_format", "NNNNNN_name.up.sql",
				"error", err)
			continue
		}
		versions = append(versions, version)
	}
	slices.Sort(versions)
	return slices.Compact(versions), nil
}

// MigrationName returns the NNNNNN_name of version for dialect, or "" when
// the version is unknown.
func MigrationName(dialect Dialect, version uint) (string, error) {
	entries, err := fs.ReadDir(migrationsFS, dialect.dir())
	if err != nil {
		return "", oops.Code("MIGRATION_READ_FAILED").
			With("operation", "read migrations dir").
			With("dialect", string(dialect)).
			Wrap(err)
	}

	prefix := fmt.Sprintf("%06d_", version)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".up.sql") {
			return strings.TrimSuffix(name, ".up.sql"), nil
		}
	}
	return "", nil
}
