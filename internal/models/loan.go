// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package models

import "time"

// LoanStatus is the loan lifecycle state.
type LoanStatus string

const (
	// LoanStatusInProgress is an open loan awaiting return.
	LoanStatusInProgress LoanStatus = "in_progress"
	// LoanStatusReturned is the terminal state; no transition leads back.
	LoanStatusReturned LoanStatus = "returned"
)

// Loan records a book lent to a student. The penalty helpers are pure
// functions of the loan and a reference instant, so the same value can be
// computed for display (open loan, reference = now) and settled on return
// (reference = ReturnedAt) without side effects.
type Loan struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	BookID     string     `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Penalty    int64      `json:"penalty"` // currency units, settled on return
	Status     LoanStatus `json:"status"`
}

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool {
	return l.Status == LoanStatusInProgress
}

// referenceInstant is ReturnedAt for a closed loan, now for an open one.
func (l *Loan) referenceInstant(now time.Time) time.Time {
	if l.ReturnedAt != nil {
		return *l.ReturnedAt
	}
	return now
}

// DaysLate returns the number of whole days the loan is (or was) past due
// at the reference instant. Never negative; partial days do not count.
func (l *Loan) DaysLate(now time.Time) int {
	ref := l.referenceInstant(now)
	if !ref.After(l.DueAt) {
		return 0
	}
	return int(ref.Sub(l.DueAt) / (24 * time.Hour))
}

// PenaltyAt returns the penalty owed at the reference instant for the given
// per-day rate. Idempotent: repeated calls with the same instant and rate
// yield the same amount.
func (l *Loan) PenaltyAt(now time.Time, ratePerDay int64) int64 {
	return int64(l.DaysLate(now)) * ratePerDay
}

// IsLate reports whether the loan is (or was returned) at least one whole
// day past due.
func (l *Loan) IsLate(now time.Time) bool {
	return l.DaysLate(now) > 0
}
