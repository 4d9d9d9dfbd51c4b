// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/campuslib/biblio/internal/models"
)

const reservationColumns = `id, student_id, book_id, reserved_at, expires_at, status`

func scanReservation(row interface{ Scan(...any) error }) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(&r.ID, &r.StudentID, &r.BookID, &r.ReservedAt, &r.ExpiresAt, &r.Status)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Reserve places a pending reservation for a student on a book. The expiry
// is the reservation instant plus the configured reservation period.
// Reserving does not hold a copy; availability is only checked when the
// reservation is honored with a borrow.
func (db *DB) Reserve(ctx context.Context, studentID, bookID string) (*models.Reservation, error) {
	if _, err := db.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := db.GetBook(ctx, bookID); err != nil {
		return nil, err
	}

	now := db.now()
	r := &models.Reservation{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		BookID:     bookID,
		ReservedAt: now,
		ExpiresAt:  now.Add(db.policy.ReservationPeriod()),
		Status:     models.ReservationStatusPending,
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reservations (id, student_id, book_id, reserved_at, expires_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StudentID, r.BookID, r.ReservedAt, r.ExpiresAt, r.Status)
	if err != nil {
		return nil, storageErr("reserve", err)
	}
	return r, nil
}

// GetReservation returns the reservation with the given ID.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	return r, nil
}

// CancelReservation moves a pending reservation to cancelled. Terminal
// reservations are rejected.
func (db *DB) CancelReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return db.transitionReservation(ctx, id, models.ReservationStatusCancelled)
}

// ConfirmReservation moves a pending reservation to confirmed. This is a
// pure status transition: handing over the copy is a separate BorrowBook
// call, so a confirmation never fails on availability and never bypasses
// the loan cap.
func (db *DB) ConfirmReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return db.transitionReservation(ctx, id, models.ReservationStatusConfirmed)
}

func (db *DB) transitionReservation(ctx context.Context, id string, to models.ReservationStatus) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
		r, err := scanReservation(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReservationNotFound
		}
		if err != nil {
			return storageErr("transition reservation: load", err)
		}
		if !r.IsPending() {
			return ErrReservationNotPending
		}
		// A pending reservation past its expiry cannot be confirmed or
		// cancelled anymore; settle it as expired instead.
		if r.IsExpired(db.now()) {
			to = models.ReservationStatusExpired
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = ? WHERE id = ?`, to, r.ID); err != nil {
			return storageErr("transition reservation: update", err)
		}
		r.Status = to
		reservation = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reservation.Status == models.ReservationStatusExpired {
		return nil, ErrReservationNotPending
	}
	return reservation, nil
}

// ExpireStaleReservations sweeps every pending reservation past its expiry
// instant into the expired state and returns how many were swept. Intended
// to run at startup and periodically.
func (db *DB) ExpireStaleReservations(ctx context.Context) (int, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE status = ? AND expires_at < ?`,
		models.ReservationStatusExpired, models.ReservationStatusPending, db.now())
	if err != nil {
		return 0, storageErr("expire reservations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("expire reservations: rows affected", err)
	}
	return int(n), nil
}

// ListReservationsByStudent returns all reservations of a student, newest
// first.
func (db *DB) ListReservationsByStudent(ctx context.Context, studentID string) ([]*models.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE student_id = ? ORDER BY reserved_at DESC, id`, studentID)
}

// ListPendingReservationsForBook returns the pending queue for a book in
// reservation order, so the earliest reservation is served first when a copy
// frees up.
func (db *DB) ListPendingReservationsForBook(ctx context.Context, bookID string) ([]*models.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE book_id = ? AND status = ? ORDER BY reserved_at, id`,
		bookID, models.ReservationStatusPending)
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query reservations", err)
	}
	defer closeQuietly(rows)

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, storageErr("query reservations: scan", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, storageErr("query reservations: iterate", rows.Err())
}
