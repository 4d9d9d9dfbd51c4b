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

const loanColumns = `id, student_id, book_id, borrowed_at, due_at, returned_at, penalty, status`

func scanLoan(row interface{ Scan(...any) error }) (*models.Loan, error) {
	var (
		l          models.Loan
		returnedAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.StudentID, &l.BookID, &l.BorrowedAt, &l.DueAt,
		&returnedAt, &l.Penalty, &l.Status)
	if err != nil {
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		l.ReturnedAt = &t
	}
	return &l, nil
}

// BorrowBook opens a loan for a student on a book. All policy checks and the
// copy decrement happen in one transaction:
//
//   - the student and the book must exist
//   - at least one copy must be available
//   - the student must be under the open-loan cap
//
// The due date is the borrow instant plus the configured loan period.
func (db *DB) BorrowBook(ctx context.Context, studentID, bookID string) (*models.Loan, error) {
	var loan *models.Loan

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM students WHERE id = ?`, studentID).Scan(&exists)
		if err != nil {
			return storageErr("borrow: check student", err)
		}
		if exists == 0 {
			return ErrStudentNotFound
		}

		var available int
		err = tx.QueryRowContext(ctx,
			`SELECT available_copies FROM books WHERE id = ?`, bookID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookNotFound
		}
		if err != nil {
			return storageErr("borrow: check book", err)
		}
		if available <= 0 {
			return ErrBookUnavailable
		}

		var open int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM loans WHERE student_id = ? AND returned_at IS NULL`,
			studentID).Scan(&open)
		if err != nil {
			return storageErr("borrow: count open loans", err)
		}
		if open >= db.policy.MaxLoansPerStudent {
			return ErrLoanLimitExceeded
		}

		now := db.now()
		loan = &models.Loan{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			BookID:     bookID,
			BorrowedAt: now,
			DueAt:      now.Add(db.policy.LoanPeriod()),
			Status:     models.LoanStatusInProgress,
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loans (id, student_id, book_id, borrowed_at, due_at, penalty, status)
			 VALUES (?, ?, ?, ?, ?, 0, ?)`,
			loan.ID, loan.StudentID, loan.BookID, loan.BorrowedAt, loan.DueAt,
			loan.Status); err != nil {
			return storageErr("borrow: insert loan", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available_copies = available_copies - 1 WHERE id = ?`,
			bookID); err != nil {
			return storageErr("borrow: decrement copies", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ReturnLoan closes a loan, settles the penalty and frees the copy.
// Returning an already-closed loan is rejected; the settled penalty never
// changes after this.
func (db *DB) ReturnLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	var loan *models.Loan

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+loanColumns+` FROM loans WHERE id = ?`, loanID)
		l, err := scanLoan(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLoanNotFound
		}
		if err != nil {
			return storageErr("return: load loan", err)
		}
		if !l.IsOpen() {
			return ErrLoanAlreadyReturned
		}

		now := db.now()
		l.ReturnedAt = &now
		l.Penalty = l.PenaltyAt(now, db.policy.PenaltyPerDay)
		l.Status = models.LoanStatusReturned

		if _, err := tx.ExecContext(ctx,
			`UPDATE loans SET returned_at = ?, penalty = ?, status = ? WHERE id = ?`,
			now, l.Penalty, l.Status, l.ID); err != nil {
			return storageErr("return: update loan", err)
		}

		// The guard keeps available within total even if a copy adjustment
		// raced the return.
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available_copies = available_copies + 1
			 WHERE id = ? AND available_copies < total_copies`,
			l.BookID); err != nil {
			return storageErr("return: increment copies", err)
		}

		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// GetLoan returns the loan with the given ID.
func (db *DB) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	l, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, storageErr("get loan", err)
	}
	return l, nil
}

// ListLoansByStudent returns all loans of a student, newest first.
func (db *DB) ListLoansByStudent(ctx context.Context, studentID string) ([]*models.Loan, error) {
	return db.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE student_id = ?
		 ORDER BY borrowed_at DESC, id`, studentID)
}

// ListOpenLoansByStudent returns the student's open loans, oldest first so
// the most overdue come out on top.
func (db *DB) ListOpenLoansByStudent(ctx context.Context, studentID string) ([]*models.Loan, error) {
	return db.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE student_id = ? AND returned_at IS NULL
		 ORDER BY due_at, id`, studentID)
}

// ListOverdueLoans returns every open loan at least one whole day past its
// due date, most overdue first. The filter matches Loan.IsLate: a loan a
// few hours past due is not overdue yet.
func (db *DB) ListOverdueLoans(ctx context.Context) ([]*models.Loan, error) {
	return db.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE returned_at IS NULL AND due_at <= ? - INTERVAL 1 DAY
		 ORDER BY due_at, id`, db.now())
}

// ListRecentLoans returns the latest loans across all students, capped at
// limit.
func (db *DB) ListRecentLoans(ctx context.Context, limit int) ([]*models.Loan, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans
		 ORDER BY borrowed_at DESC, id LIMIT ?`, limit)
}

func (db *DB) queryLoans(ctx context.Context, query string, args ...any) ([]*models.Loan, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query loans", err)
	}
	defer closeQuietly(rows)

	var loans []*models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, storageErr("query loans: scan", err)
		}
		loans = append(loans, l)
	}
	return loans, storageErr("query loans: iterate", rows.Err())
}

// StudentLoanSummary aggregates a student's ledger for the dashboard. The
// accrued penalty covers open loans only, computed against the store clock;
// settled penalties of returned loans are not re-counted here.
func (db *DB) StudentLoanSummary(ctx context.Context, studentID string) (*models.StudentLoanSummary, error) {
	if _, err := db.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}

	loans, err := db.ListLoansByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := db.now()
	summary := &models.StudentLoanSummary{StudentID: studentID, TotalLoans: len(loans)}
	for _, l := range loans {
		if !l.IsOpen() {
			continue
		}
		summary.OpenLoans++
		if l.IsLate(now) {
			summary.OverdueLoans++
			summary.AccruedPenalty += l.PenaltyAt(now, db.policy.PenaltyPerDay)
		}
	}
	return summary, nil
}

// LoanStatistics aggregates the whole ledger for the staff dashboard. The
// penalty total is settled penalties of returned loans plus the penalty
// accrued so far on overdue open loans.
func (db *DB) LoanStatistics(ctx context.Context) (*models.LoanStatistics, error) {
	now := db.now()
	stats := &models.LoanStatistics{}

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE returned_at IS NULL),
			COUNT(*) FILTER (WHERE returned_at IS NULL AND due_at <= ? - INTERVAL 1 DAY),
			COALESCE(SUM(penalty), 0)
		 FROM loans`, now).
		Scan(&stats.TotalLoans, &stats.OpenLoans, &stats.OverdueLoans, &stats.TotalPenalty)
	if err != nil {
		return nil, storageErr("loan statistics: counts", err)
	}

	overdue, err := db.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE returned_at IS NULL AND due_at <= ? - INTERVAL 1 DAY
		 ORDER BY due_at, id`, now)
	if err != nil {
		return nil, err
	}
	for _, l := range overdue {
		stats.TotalPenalty += l.PenaltyAt(now, db.policy.PenaltyPerDay)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT b.category, COUNT(*) AS loan_count
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE b.category <> ''
		 GROUP BY b.category
		 ORDER BY loan_count DESC, b.category
		 LIMIT 5`)
	if err != nil {
		return nil, storageErr("loan statistics: categories", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.LoanCount); err != nil {
			return nil, storageErr("loan statistics: scan category", err)
		}
		stats.TopCategories = append(stats.TopCategories, cc)
	}
	return stats, storageErr("loan statistics: iterate", rows.Err())
}

// LoanEvents returns the flattened loan history (student, book, category)
// the recommendation engine works from. Ordered by student then book so the
// engine sees a stable input.
func (db *DB) LoanEvents(ctx context.Context) ([]models.LoanEvent, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.student_id, l.book_id, b.category
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 ORDER BY l.student_id, l.book_id, l.borrowed_at`)
	if err != nil {
		return nil, storageErr("loan events", err)
	}
	defer closeQuietly(rows)

	var events []models.LoanEvent
	for rows.Next() {
		var e models.LoanEvent
		if err := rows.Scan(&e.StudentID, &e.BookID, &e.Category); err != nil {
			return nil, storageErr("loan events: scan", err)
		}
		events = append(events, e)
	}
	return events, storageErr("loan events: iterate", rows.Err())
}
