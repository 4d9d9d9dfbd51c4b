// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/campuslib/biblio/internal/models"
)

const bookColumns = `id, COALESCE(isbn, ''), title, category, publisher, publication_year,
	page_count, language, description, total_copies, available_copies, created_at`

// scanBook reads one book row. Works for both *sql.Row and *sql.Rows.
func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Category, &b.Publisher,
		&b.PublicationYear, &b.PageCount, &b.Language, &b.Description,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook adds a title to the catalog. The ID is generated here; the
// available counter starts equal to the total. An empty ISBN is stored as
// NULL so the uniqueness constraint only applies to real ISBNs.
func (db *DB) CreateBook(ctx context.Context, b *models.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.TotalCopies <= 0 {
		b.TotalCopies = 1
	}
	b.AvailableCopies = b.TotalCopies
	b.CreatedAt = db.now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO books (id, isbn, title, category, publisher, publication_year,
			page_count, language, description, total_copies, available_copies, created_at)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ISBN, b.Title, b.Category, b.Publisher, b.PublicationYear,
		b.PageCount, b.Language, b.Description, b.TotalCopies, b.AvailableCopies, b.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return storageErr("create book", err)
	}
	return nil
}

// GetBook returns the book with the given ID.
func (db *DB) GetBook(ctx context.Context, id string) (*models.Book, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, storageErr("get book", err)
	}
	return b, nil
}

// UpdateBook updates the descriptive fields of a book. Copy counters are
// owned by the loan ledger and AdjustBookCopies; this method does not touch
// them.
func (db *DB) UpdateBook(ctx context.Context, b *models.Book) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE books SET isbn = NULLIF(?, ''), title = ?, category = ?, publisher = ?,
			publication_year = ?, page_count = ?, language = ?, description = ?
		 WHERE id = ?`,
		b.ISBN, b.Title, b.Category, b.Publisher, b.PublicationYear,
		b.PageCount, b.Language, b.Description, b.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return storageErr("update book", err)
	}
	return requireRow(res, ErrBookNotFound, "update book")
}

// AdjustBookCopies changes the total copy count by delta (positive for new
// acquisitions, negative for discarded copies) and moves the available
// counter in step. Discarding copies that are out on loan is refused;
// dropping to zero copies is allowed and leaves the title unavailable.
func (db *DB) AdjustBookCopies(ctx context.Context, id string, delta int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var total, available int
		err := tx.QueryRowContext(ctx,
			`SELECT total_copies, available_copies FROM books WHERE id = ?`, id).
			Scan(&total, &available)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookNotFound
		}
		if err != nil {
			return storageErr("adjust copies: load book", err)
		}

		// total >= available always, so newAvailable >= 0 implies
		// newTotal >= 0 too.
		newTotal := total + delta
		newAvailable := available + delta
		if newAvailable < 0 {
			return ErrBookInUse
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE books SET total_copies = ?, available_copies = ? WHERE id = ?`,
			newTotal, newAvailable, id)
		return storageErr("adjust copies: update book", err)
	})
}

// DeleteBook removes a title from the catalog. Refused while any copy is
// out on loan.
func (db *DB) DeleteBook(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var open int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM loans WHERE book_id = ? AND returned_at IS NULL`, id).
			Scan(&open)
		if err != nil {
			return storageErr("delete book: count open loans", err)
		}
		if open > 0 {
			return ErrBookInUse
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM book_authors WHERE book_id = ?`, id); err != nil {
			return storageErr("delete book: unlink authors", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete book", err)
		}
		return requireRow(res, ErrBookNotFound, "delete book")
	})
}

// ListBooks returns the whole catalog ordered by title.
func (db *DB) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY title, id`)
}

// SearchBooks returns books whose title, category, ISBN or author name
// contains the query, case-insensitively. An empty query returns the whole
// catalog.
func (db *DB) SearchBooks(ctx context.Context, query string) ([]*models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return db.ListBooks(ctx)
	}
	pattern := "%" + strings.ToLower(query) + "%"
	return db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE lower(title) LIKE ?
		    OR lower(category) LIKE ?
		    OR lower(COALESCE(isbn, '')) LIKE ?
		    OR EXISTS (
			SELECT 1 FROM book_authors ba
			JOIN authors a ON a.id = ba.author_id
			WHERE ba.book_id = books.id AND lower(a.name) LIKE ?
		    )
		 ORDER BY title, id`,
		pattern, pattern, pattern, pattern)
}

// ListBooksByCategory returns the books of one category ordered by title.
func (db *DB) ListBooksByCategory(ctx context.Context, category string) ([]*models.Book, error) {
	return db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE category = ? ORDER BY title, id`,
		category)
}

// ListCategories returns the distinct non-empty categories in the catalog,
// sorted.
func (db *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT category FROM books WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer closeQuietly(rows)

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, storageErr("list categories: scan", err)
		}
		categories = append(categories, c)
	}
	return categories, storageErr("list categories: iterate", rows.Err())
}

func (db *DB) queryBooks(ctx context.Context, query string, args ...any) ([]*models.Book, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query books", err)
	}
	defer closeQuietly(rows)

	var books []*models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, storageErr("query books: scan", err)
		}
		books = append(books, b)
	}
	return books, storageErr("query books: iterate", rows.Err())
}

// CreateAuthor adds an author.
func (db *DB) CreateAuthor(ctx context.Context, a *models.Author) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO authors (id, name, nationality, biography) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.Nationality, a.Biography)
	return storageErr("create author", err)
}

// GetAuthor returns the author with the given ID.
func (db *DB) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	var a models.Author
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, nationality, biography FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Nationality, &a.Biography)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuthorNotFound
	}
	if err != nil {
		return nil, storageErr("get author", err)
	}
	return &a, nil
}

// LinkBookAuthor associates an author with a book. Linking twice is a no-op.
func (db *DB) LinkBookAuthor(ctx context.Context, bookID, authorID string) error {
	if _, err := db.GetBook(ctx, bookID); err != nil {
		return err
	}
	if _, err := db.GetAuthor(ctx, authorID); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO book_authors (book_id, author_id) VALUES (?, ?)
		 ON CONFLICT DO NOTHING`,
		bookID, authorID)
	return storageErr("link book author", err)
}

// ListBookAuthors returns the authors of a book ordered by name.
func (db *DB) ListBookAuthors(ctx context.Context, bookID string) ([]*models.Author, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT a.id, a.name, a.nationality, a.biography
		 FROM authors a
		 JOIN book_authors ba ON ba.author_id = a.id
		 WHERE ba.book_id = ?
		 ORDER BY a.name, a.id`, bookID)
	if err != nil {
		return nil, storageErr("list book authors", err)
	}
	defer closeQuietly(rows)

	var authors []*models.Author
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Nationality, &a.Biography); err != nil {
			return nil, storageErr("list book authors: scan", err)
		}
		authors = append(authors, &a)
	}
	return authors, storageErr("list book authors: iterate", rows.Err())
}
