// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslib/biblio/internal/logging"
)

// Migration is a versioned, append-only schema change. The base schema lives
// in createTables; migrations cover changes to databases already in the
// field. Never modify or remove a migration once shipped.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time // populated on query
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrations returns all versioned migrations in order.
//
// DuckDB does not support constraints on ADD COLUMN, so migration
// statements carry only the DEFAULT; NOT NULL lives in the base schema,
// which fresh databases get from createTables.
func (db *DB) migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "add_book_language",
			Description: "Track the language a book is written in",
			SQL:         `ALTER TABLE books ADD COLUMN IF NOT EXISTS language TEXT DEFAULT 'French';`,
		},
		{
			Version:     2,
			Name:        "add_student_phone",
			Description: "Optional contact phone number on student accounts",
			SQL:         `ALTER TABLE students ADD COLUMN IF NOT EXISTS phone TEXT DEFAULT '';`,
		},
	}
}

// appliedMigrations returns a map of version to applied migration.
func (db *DB) appliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeQuietly(rows)

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runMigrations applies migrations that have not run yet, recording each one
// in schema_migrations so it runs exactly once per database file.
func (db *DB) runMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	newMigrations := 0
	for _, m := range db.migrations() {
		if _, exists := applied[m.Version]; exists {
			continue
		}

		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, storageErr("query schema version", err)
	}
	return version, nil
}
