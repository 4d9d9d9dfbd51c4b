// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

// Package models defines the data model shared by the store, the ledgers
// and the recommendation engine: catalog entities (Book, Author), accounts
// (Student, Librarian), and the ledger records (Loan, Reservation) with
// their pure state helpers.
package models

import "time"

// Book represents a title in the catalog. Copies are tracked as a pair of
// counters rather than per-copy rows; the invariant
// 0 <= AvailableCopies <= TotalCopies is maintained by the loan ledger.
type Book struct {
	ID              string    `json:"id"`
	ISBN            string    `json:"isbn,omitempty"` // unique when present
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Publisher       string    `json:"publisher"`
	PublicationYear int       `json:"publication_year"`
	PageCount       int       `json:"page_count"`
	Language        string    `json:"language"`
	Description     string    `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsAvailable reports whether at least one copy can be borrowed.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// Author represents a book author. Books and authors are many-to-many;
// the association carries no ordering.
type Author struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Nationality string `json:"nationality,omitempty"`
	Biography   string `json:"biography,omitempty"`
}
