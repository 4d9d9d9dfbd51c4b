// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package models

import "time"

// ReservationStatus is the reservation lifecycle state.
//
// State machine:
//
//	pending --confirm--> confirmed
//	pending --cancel---> cancelled
//	pending --timeout--> expired
//
// confirmed, cancelled and expired are all terminal. Confirmation is a pure
// status transition: handing the reserved copy to the student is a separate
// borrow through the loan ledger, invoked explicitly by the caller.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Reservation is a time-boxed request by a student for a book.
type Reservation struct {
	ID         string            `json:"id"`
	StudentID  string            `json:"student_id"`
	BookID     string            `json:"book_id"`
	ReservedAt time.Time         `json:"reserved_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Status     ReservationStatus `json:"status"`
}

// IsPending reports whether the reservation can still transition.
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationStatusPending
}

// IsExpired reports whether the reservation is pending but past its expiry
// instant. The stored status only changes when the expiry sweep runs; this
// is the derived view in the meantime.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationStatusPending && now.After(r.ExpiresAt)
}
