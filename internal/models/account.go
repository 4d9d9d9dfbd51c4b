// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package models

import "time"

// Role distinguishes librarian privilege levels.
type Role string

const (
	// RoleAdmin has full access, including account management.
	RoleAdmin Role = "admin"
	// RoleLibrarian manages the catalog and the ledgers.
	RoleLibrarian Role = "librarian"
)

// Student is a library member who can borrow and reserve books.
type Student struct {
	ID           string    `json:"id"`
	Matricule    string    `json:"matricule"` // unique, e.g. "ENSEA-0042"
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"` // unique
	PasswordHash string    `json:"-"`
	Program      string    `json:"program"` // e.g. "Data Science"
	Level        string    `json:"level"`   // e.g. "M1", "M2"
	Phone        string    `json:"phone,omitempty"`
	Active       bool      `json:"active"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// FullName returns the student's display name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Librarian is a staff account operating the ledgers.
type Librarian struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"` // unique
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"` // unique
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName returns the librarian's display name.
func (l *Librarian) FullName() string {
	return l.FirstName + " " + l.LastName
}

// IsAdmin reports whether this librarian has admin privileges.
func (l *Librarian) IsAdmin() bool {
	return l.Role == RoleAdmin
}

// Account is the closed sum of the two account kinds. Authentication
// returns an Account and callers switch exhaustively:
//
//	switch acc := account.(type) {
//	case *Student:
//	    ...
//	case *Librarian:
//	    ...
//	}
//
// Only *Student and *Librarian implement it.
type Account interface {
	// AccountID returns the entity identifier.
	AccountID() string
	// DisplayName returns the full name for presentation.
	DisplayName() string

	isAccount()
}

func (s *Student) isAccount()   {}
func (l *Librarian) isAccount() {}

// AccountID implements Account.
func (s *Student) AccountID() string { return s.ID }

// DisplayName implements Account.
func (s *Student) DisplayName() string { return s.FullName() }

// AccountID implements Account.
func (l *Librarian) AccountID() string { return l.ID }

// DisplayName implements Account.
func (l *Librarian) DisplayName() string { return l.FullName() }
