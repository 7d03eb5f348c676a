// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/postgres"
	"github.com/holomush/holoauth/internal/auth/sqlite"
	"github.com/holomush/holoauth/internal/store"
)

// accountStore is an open account repository with its lifecycle hooks.
type accountStore struct {
	repo  auth.AccountRepository
	ping  func(ctx context.Context) error
	close func() error
}

// openAccountStore connects to target and, when autoMigrate is set, applies
// pending migrations before returning.
func openAccountStore(ctx context.Context, target databaseTarget, autoMigrate bool, logger *slog.Logger) (*accountStore, error) {
	switch target.dialect {
	case store.DialectPostgres:
		return openPostgres(ctx, target, autoMigrate, logger)
	case store.DialectSQLite:
		return openSQLite(ctx, target, autoMigrate, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").With("dialect", string(target.dialect)).Errorf("unsupported database")
	}
}

func openPostgres(ctx context.Context, target databaseTarget, autoMigrate bool, logger *slog.Logger) (*accountStore, error) {
	pool, err := store.Connect(ctx, target.url, store.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := migrateUp(ctx, func() (*store.Migrator, error) { return store.NewMigrator(target.url) }, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &accountStore{
		repo: postgres.NewAccountRepository(pool),
		ping: pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

func openSQLite(ctx context.Context, target databaseTarget, autoMigrate bool, logger *slog.Logger) (*accountStore, error) {
	if err := target.ensureParentDir(); err != nil {
		return nil, err
	}
	db, err := store.OpenSQLite(ctx, target.path)
	if err != nil {
		return nil, err
	}

	closeFn := db.Close
	if autoMigrate {
		m, err := store.NewSQLiteMigrator(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := m.Up(); err != nil {
			_ = m.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "sqlite migrations applied", "path", target.path)
		// Closing the migrator closes db.
		closeFn = m.Close
	}

	return &accountStore{
		repo:  sqlite.NewAccountRepository(db),
		ping:  db.PingContext,
		close: closeFn,
	}, nil
}

// migrateUp applies pending migrations with a short-lived migrator.
func migrateUp(ctx context.Context, open func() (*store.Migrator, error), logger *slog.Logger) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.WarnContext(ctx, "closing migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	if err := m.Up(); err != nil {
		return err
	}
	logger.InfoContext(ctx, "migrations applied", "dialect", string(m.Dialect()), "count", len(pending))
	return nil
}
