// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every connection.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

// OpenSQLite opens the SQLite database at path. The special path ":memory:"
// opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	db, err := sql.Open("sqlite", dsn+"?"+sqlitePragmas)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("path", path).Wrap(err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn
	// and keeps an in-memory database alive for the process lifetime.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").With("path", path).Wrap(err)
	}
	return db, nil
}
