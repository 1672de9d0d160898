// Package storedb opens SQLite databases and applies per-module schema
// migrations.
package storedb

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jingkaihe/unipy/internal/errx"
)

// Migration is one forward-only schema step. Versions are per module.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

type OpenOptions struct {
	Path       string
	Module     string
	Migrations []Migration
}

// Open opens (creating if needed) the database at opts.Path and applies any
// migrations for opts.Module that have not run yet.
func Open(opts OpenOptions) (*sql.DB, error) {
	if opts.Module == "" {
		return nil, ErrNoModule
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, errx.Wrap(ErrOpenDB, err)
	}

	db, err := sql.Open("sqlite", opts.Path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errx.Wrap(ErrOpenDB, err)
	}
	// A single connection keeps writers serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrOpenDB, err)
	}
	if err := migrate(db, opts.Module, opts.Migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB, module string, migrations []Migration) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  module TEXT NOT NULL,
  version INTEGER NOT NULL,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL,
  PRIMARY KEY (module, version)
);`); err != nil {
		return errx.Wrap(ErrMigrate, err)
	}

	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		var exists int
		err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE module = ? AND version = ?`, module, m.Version).Scan(&exists)
		if err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return errx.With(ErrMigrate, ": %s v%d %s: %w", module, m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(module, version, name, applied_at) VALUES (?, ?, ?, ?)`,
			module, m.Version, m.Name, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return errx.Wrap(ErrMigrate, err)
		}
		if err := tx.Commit(); err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
	}
	return nil
}
