// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuslib/biblio/internal/config"
	"github.com/campuslib/biblio/internal/models"
)

// testEpoch is the frozen clock every test store starts at.
var testEpoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory store with the default lending policy
// (14 loan days, 100 per day late, 3 reservation days, cap 5) and a frozen
// clock at testEpoch.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   2,
	}
	policy := config.PolicyConfig{
		LoanDays:           14,
		PenaltyPerDay:      100,
		ReservationDays:    3,
		MaxLoansPerStudent: 5,
	}

	db, err := New(cfg, policy)
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	setClock(db, testEpoch)
	return db
}

// setClock freezes the store clock at the given instant.
func setClock(db *DB, at time.Time) {
	db.SetNowFunc(func() time.Time { return at })
}

var fixtureSeq int

// createTestStudent inserts a student with generated unique matricule and
// email.
func createTestStudent(t *testing.T, db *DB) *models.Student {
	t.Helper()
	fixtureSeq++
	s := &models.Student{
		Matricule: fmt.Sprintf("ENSEA-%04d", fixtureSeq),
		FirstName: "Test",
		LastName:  fmt.Sprintf("Student%d", fixtureSeq),
		Email:     fmt.Sprintf("student%d@univ.test", fixtureSeq),
		Program:   "Data Science",
		Level:     "M1",
	}
	require.NoError(t, db.CreateStudent(context.Background(), s, "s3cret-pass"))
	return s
}

// createTestBook inserts a book with the given title, category and copy
// count.
func createTestBook(t *testing.T, db *DB, title, category string, copies int) *models.Book {
	t.Helper()
	b := &models.Book{
		Title:       title,
		Category:    category,
		Publisher:   "Presses Test",
		Language:    "French",
		TotalCopies: copies,
	}
	require.NoError(t, db.CreateBook(context.Background(), b))
	return b
}
