// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Business-rule errors. These are returned to the caller as typed failures
// and never logged by the store itself; the presentation layer decides how
// to surface them.
var (
	// ErrBookNotFound indicates the referenced book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrStudentNotFound indicates the referenced student does not exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrLibrarianNotFound indicates the referenced librarian does not exist.
	ErrLibrarianNotFound = errors.New("librarian not found")

	// ErrAuthorNotFound indicates the referenced author does not exist.
	ErrAuthorNotFound = errors.New("author not found")

	// ErrLoanNotFound indicates the referenced loan does not exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrReservationNotFound indicates the referenced reservation does not exist.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrBookUnavailable indicates no free copy is left to borrow.
	ErrBookUnavailable = errors.New("no available copy of this book")

	// ErrBookInUse indicates a catalog change (delete, copy discard) was
	// refused because copies are currently out on loan.
	ErrBookInUse = errors.New("book has copies out on loan")

	// ErrLoanLimitExceeded indicates the student already holds the maximum
	// number of open loans.
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")

	// ErrLoanAlreadyReturned indicates a return was attempted on a closed loan.
	ErrLoanAlreadyReturned = errors.New("loan already returned")

	// ErrReservationNotPending indicates a transition was attempted on a
	// reservation that already reached a terminal state.
	ErrReservationNotPending = errors.New("reservation is not pending")

	// ErrInvalidCredentials indicates authentication failed. Deliberately
	// does not reveal whether the account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicate indicates a uniqueness constraint (ISBN, matricule,
	// email, login) was violated.
	ErrDuplicate = errors.New("record already exists")
)

// StorageError wraps an infrastructure failure (connection, SQL execution,
// transaction commit). It is distinct from the business-rule sentinels so a
// caller can tell "the request was invalid" from "the system failed to
// persist it".
type StorageError struct {
	Op  string // operation that failed, e.g. "borrow: insert loan"
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a *StorageError. Returns nil for a nil err so it
// can be used on return paths directly.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// isConstraintViolation reports whether a driver error is a uniqueness or
// CHECK constraint failure. The DuckDB driver exposes these as plain error
// strings, so this matches on the message.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}

// requireRow translates "UPDATE/DELETE touched no row" into the given
// business error.
func requireRow(res sql.Result, missing error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

// closeQuietly closes a resource and explicitly ignores any error.
// Used on error paths where Close() failures are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
