// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the relational backend's schema on startup.
//
// It wraps golang-migrate: the runner executes once from main before the
// server accepts traffic, so the users table always exists (and matches the
// current column set) by the time the postgres port serves its first query.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// database driver.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Registers the file:// migration source.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunUp applies every pending up migration under migrationsPath against the
// database at dsn.
//
// A dirty schema aborts startup: it means a previous run died mid-migration
// and needs an operator, not a retry.
func RunUp(dsn, migrationsPath string, log *slog.Logger) error {
	migrator, err := migrate.New("file://"+migrationsPath, pgx5URL(dsn))
	if err != nil {
		return fmt.Errorf("migration: open runner: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := migrator.Close(); sourceErr != nil || dbErr != nil {
			log.Error("closing migration runner failed",
				slog.Any("source_error", sourceErr),
				slog.Any("db_error", dbErr))
		}
	}()

	migrator.Log = &slogBridge{log: log}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: schema is dirty at version %d, resolve manually before restarting", version)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema already up to date", slog.Uint64("version", uint64(version)))
			return nil
		}
		return fmt.Errorf("migration: apply: %w", err)
	}

	applied, _, _ := migrator.Version()
	log.Info("schema migrated",
		slog.Uint64("from", uint64(version)),
		slog.Uint64("to", uint64(applied)))

	return nil
}

// pgx5URL rewrites postgres:// and postgresql:// URLs onto the pgx5://
// scheme the pgx/v5 driver registers under.
func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// slogBridge adapts golang-migrate's Logger interface onto slog.
type slogBridge struct {
	log *slog.Logger
}

func (b *slogBridge) Printf(format string, args ...any) {
	b.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b *slogBridge) Verbose() bool { return false }
