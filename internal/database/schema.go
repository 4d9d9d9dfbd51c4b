// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"fmt"
)

// createTables creates the base schema. Every statement is idempotent so
// startup against an existing file is a no-op.
//
// Identifiers are UUID strings generated by the application. Monetary
// amounts (penalties) are BIGINT in the smallest currency unit. The books
// CHECK constraint is the last line of defense for the copy invariant
// (0 <= available_copies <= total_copies); the ledgers maintain it
// transactionally and the constraint catches anything that slips through.
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id TEXT PRIMARY KEY,
			isbn TEXT UNIQUE,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			publication_year INTEGER NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			language TEXT NOT NULL DEFAULT 'French',
			description TEXT NOT NULL DEFAULT '',
			total_copies INTEGER NOT NULL DEFAULT 1,
			available_copies INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			CHECK (available_copies >= 0 AND available_copies <= total_copies)
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			nationality TEXT NOT NULL DEFAULT '',
			biography TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS book_authors (
			book_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			PRIMARY KEY (book_id, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			matricule TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			program TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			enrolled_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS librarians (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'librarian',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			borrowed_at TIMESTAMP NOT NULL,
			due_at TIMESTAMP NOT NULL,
			returned_at TIMESTAMP,
			penalty BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'in_progress'
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			reserved_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_category ON books(category)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books(title)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_student ON loans(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_due ON loans(due_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_student ON reservations(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
