// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslib/biblio/internal/models"
)

func TestReserveLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := createTestStudent(t, db)
	book := createTestBook(t, db, "Fondation", "Science-Fiction", 1)

	r, err := db.Reserve(ctx, student.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, r.Status)
	assert.Equal(t, testEpoch, r.ReservedAt)
	assert.Equal(t, testEpoch.AddDate(0, 0, 3), r.ExpiresAt)

	// Reserving does not hold a copy.
	got, err := db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	confirmed, err := db.ConfirmReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, confirmed.Status)

	// Confirmation is terminal.
	_, err = db.CancelReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReservationNotPending)
	_, err = db.ConfirmReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReservationNotPending)
}

func TestReserveRejectsUnknownReferences(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := createTestStudent(t, db)
	book := createTestBook(t, db, "Dune", "Science-Fiction", 1)

	_, err := db.Reserve(ctx, "no-such-student", book.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	_, err = db.Reserve(ctx, student.ID, "no-such-book")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestCancelReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := createTestStudent(t, db)
	book := createTestBook(t, db, "Neuromancien", "Science-Fiction", 1)

	r, err := db.Reserve(ctx, student.ID, book.ID)
	require.NoError(t, err)

	cancelled, err := db.CancelReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)

	_, err = db.ConfirmReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReservationNotPending)

	_, err = db.CancelReservation(ctx, "no-such-reservation")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestConfirmAfterExpirySettlesAsExpired(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := createTestStudent(t, db)
	book := createTestBook(t, db, "Hyperion", "Science-Fiction", 1)

	r, err := db.Reserve(ctx, student.ID, book.ID)
	require.NoError(t, err)

	// Past the 3-day window the pending reservation can only expire.
	setClock(db, testEpoch.AddDate(0, 0, 3).Add(time.Hour))
	_, err = db.ConfirmReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReservationNotPending)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusExpired, got.Status)
}

func TestExpireStaleReservations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	student := createTestStudent(t, db)
	old := createTestBook(t, db, "Old", "Essai", 1)
	fresh := createTestBook(t, db, "Fresh", "Essai", 1)

	stale, err := db.Reserve(ctx, student.ID, old.ID)
	require.NoError(t, err)

	// Second reservation placed two days later stays within its window
	// when the sweep runs on day four.
	setClock(db, testEpoch.AddDate(0, 0, 2))
	keep, err := db.Reserve(ctx, student.ID, fresh.ID)
	require.NoError(t, err)

	setClock(db, testEpoch.AddDate(0, 0, 4))
	n, err := db.ExpireStaleReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := db.GetReservation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusExpired, got.Status)

	got, err = db.GetReservation(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, got.Status)

	// Sweep is idempotent.
	n, err = db.ExpireStaleReservations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPendingReservationQueueOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := createTestStudent(t, db)
	second := createTestStudent(t, db)
	book := createTestBook(t, db, "Ubik", "Science-Fiction", 1)

	r1, err := db.Reserve(ctx, first.ID, book.ID)
	require.NoError(t, err)

	setClock(db, testEpoch.Add(time.Hour))
	r2, err := db.Reserve(ctx, second.ID, book.ID)
	require.NoError(t, err)

	queue, err := db.ListPendingReservationsForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, r1.ID, queue[0].ID)
	assert.Equal(t, r2.ID, queue[1].ID)

	// Cancelled reservations drop out of the queue.
	_, err = db.CancelReservation(ctx, r1.ID)
	require.NoError(t, err)

	queue, err = db.ListPendingReservationsForBook(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, r2.ID, queue[0].ID)
}
