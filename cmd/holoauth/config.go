// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/settings"
	"github.com/holomush/holoauth/internal/store"
	"github.com/holomush/holoauth/internal/xdg"
)

// flagPaths maps command-line flags to settings paths.
var flagPaths = map[string]string{
	"telnet-addr":     settings.TelnetAddr.Path(),
	"metrics-addr":    settings.MetricsAddr.Path(),
	"log-format":      settings.LogFormat.Path(),
	"log-level":       settings.LogLevel.Path(),
	"database-driver": settings.DatabaseDriver.Path(),
	"database-url":    settings.DatabaseURL.Path(),
	"sqlite-path":     settings.SQLitePath.Path(),
	"auto-migrate":    settings.AutoMigrate.Path(),
	"messages-file":   settings.MessagesFile.Path(),
	"workers":         settings.ExecutorWorkers.Path(),
}

// addDatabaseFlags registers the flags shared by serve and migrate.
func addDatabaseFlags(flags *pflag.FlagSet) {
	defaults := settings.New()
	flags.String("database-driver", settings.Get(defaults, settings.DatabaseDriver), "account store (postgres or sqlite)")
	flags.String("database-url", "", "PostgreSQL URL (default: DATABASE_URL)")
	flags.String("sqlite-path", "", "SQLite database file (default: XDG_DATA_HOME/holoauth/accounts.db)")
}

// loadSettings reads defaults, the config file and flags. Without --config
// the XDG config file is used when it exists.
func loadSettings(flags *pflag.FlagSet) (*settings.Settings, error) {
	opts := settings.LoadOptions{
		File:      configFile,
		Flags:     flags,
		FlagPaths: flagPaths,
	}
	if opts.File == "" {
		if path, err := xdg.ConfigFile(); err == nil {
			opts.File = path
			opts.Optional = true
		}
	}
	return settings.Load(opts)
}

// setupLogging installs the process-wide logger described by s.
func setupLogging(s *settings.Settings, w io.Writer) (*slog.Logger, error) {
	return logging.SetDefault(logging.Options{
		Service: "holoauth",
		Version: version,
		Format:  settings.Get(s, settings.LogFormat),
		Level:   settings.Get(s, settings.LogLevel),
	}, w)
}

// getDatabaseURL returns the DATABASE_URL environment variable.
func getDatabaseURL() (string, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return databaseURL, nil
}

// databaseTarget is a resolved account store location.
type databaseTarget struct {
	dialect store.Dialect
	url     string // postgres only
	path    string // sqlite only
}

// resolveDatabase picks the store backend and its location from s.
func resolveDatabase(s *settings.Settings) (databaseTarget, error) {
	switch driver := strings.ToLower(settings.Get(s, settings.DatabaseDriver)); driver {
	case "postgres", "postgresql":
		url := settings.Get(s, settings.DatabaseURL)
		if url == "" {
			var err error
			if url, err = getDatabaseURL(); err != nil {
				return databaseTarget{}, err
			}
		}
		return databaseTarget{dialect: store.DialectPostgres, url: url}, nil
	case "sqlite":
		path := settings.Get(s, settings.SQLitePath)
		if path == "" {
			var err error
			if path, err = xdg.DatabaseFile(); err != nil {
				return databaseTarget{}, oops.Code("CONFIG_INVALID").With("operation", "default sqlite path").Wrap(err)
			}
		}
		return databaseTarget{dialect: store.DialectSQLite, path: path}, nil
	default:
		return databaseTarget{}, oops.Code("CONFIG_INVALID").
			With("driver", driver).
			Errorf("database.driver must be postgres or sqlite, got %q", driver)
	}
}

// ensureParentDir creates the directory holding a SQLite file.
func (t databaseTarget) ensureParentDir() error {
	if t.dialect != store.DialectSQLite || t.path == ":memory:" {
		return nil
	}
	return xdg.EnsureDir(filepath.Dir(t.path))
}
