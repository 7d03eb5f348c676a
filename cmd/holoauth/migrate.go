// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage account database migrations",
		Long: `Manage the account schema. Without a subcommand all pending migrations
are applied. Works with both the PostgreSQL and SQLite stores.`,
		RunE: runMigrateUp,
	}
	addDatabaseFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops the accounts table)",
		RunE: withMigrator(func(cmd *cobra.Command, m *store.Migrator, _ []string) error {
			cmd.Println("Rolling back migrations...")
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: withMigrator(func(cmd *cobra.Command, m *store.Migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				cmd.Printf("Version: %d (dirty)\n", v)
				return nil
			}
			cmd.Printf("Version: %d\n", v)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m *store.Migrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Forced version to %d\n", v)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE:  withMigrator(printMigrationStatus),
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	return withMigrator(func(cmd *cobra.Command, m *store.Migrator, _ []string) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})(cmd, args)
}

// withMigrator opens a migrator for the configured database around fn.
func withMigrator(fn func(cmd *cobra.Command, m *store.Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		target, err := resolveDatabase(s)
		if err != nil {
			return err
		}

		var m *store.Migrator
		switch target.dialect {
		case store.DialectSQLite:
			if target.path == ":memory:" {
				return oops.Code("CONFIG_INVALID").Errorf("cannot migrate an in-memory database")
			}
			if err := target.ensureParentDir(); err != nil {
				return err
			}
			m, err = store.NewMigrator(target.path)
		default:
			m, err = store.NewMigrator(target.url)
		}
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
		}
		defer func() { _ = m.Close() }()

		return fn(cmd, m, args)
	}
}

func printMigrationStatus(cmd *cobra.Command, m *store.Migrator, _ []string) error {
	v, dirty, err := m.Version()
	if err != nil {
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

	state := "clean"
	if dirty {
		state = "dirty"
	}
	cmd.Printf("Dialect: %s\n", m.Dialect())
	cmd.Printf("Version: %d (%s)\n", v, state)
	for _, av := range applied {
		name, _ := store.MigrationName(m.Dialect(), av) //nolint:errcheck // version came from the same source
		cmd.Printf("  [x] %s\n", name)
	}
	for _, pv := range pending {
		name, _ := store.MigrationName(m.Dialect(), pv) //nolint:errcheck // version came from the same source
		cmd.Printf("  [ ] %s\n", name)
	}
	cmd.Printf("Applied: %d, pending: %d\n", len(applied), len(pending))
	return nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: must be an integer", s)
	}
	return v, nil
}
