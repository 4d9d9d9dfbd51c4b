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
	"golang.org/x/crypto/bcrypt"

	"github.com/campuslib/biblio/internal/models"
)

const studentColumns = `id, matricule, first_name, last_name, email, password_hash,
	program, level, phone, active, enrolled_at`

func scanStudent(row interface{ Scan(...any) error }) (*models.Student, error) {
	var s models.Student
	err := row.Scan(&s.ID, &s.Matricule, &s.FirstName, &s.LastName, &s.Email,
		&s.PasswordHash, &s.Program, &s.Level, &s.Phone, &s.Active, &s.EnrolledAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStudent registers a student account. password is hashed with bcrypt
// before storage; the plaintext is never persisted. Matricule and email are
// unique.
func (db *DB) CreateStudent(ctx context.Context, s *models.Student, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return storageErr("create student: hash password", err)
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.PasswordHash = string(hash)
	s.Active = true
	s.EnrolledAt = db.now()
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO students (id, matricule, first_name, last_name, email, password_hash,
			program, level, phone, active, enrolled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Matricule, s.FirstName, s.LastName, s.Email, s.PasswordHash,
		s.Program, s.Level, s.Phone, s.Active, s.EnrolledAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return storageErr("create student", err)
	}
	return nil
}

// GetStudent returns the student with the given ID.
func (db *DB) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, storageErr("get student", err)
	}
	return s, nil
}

// GetStudentByMatricule returns the student with the given matricule.
func (db *DB) GetStudentByMatricule(ctx context.Context, matricule string) (*models.Student, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE matricule = ?`, matricule)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, storageErr("get student by matricule", err)
	}
	return s, nil
}

// ListStudents returns all student accounts ordered by last then first name.
func (db *DB) ListStudents(ctx context.Context) ([]*models.Student, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, storageErr("list students", err)
	}
	defer closeQuietly(rows)

	var students []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, storageErr("list students: scan", err)
		}
		students = append(students, s)
	}
	return students, storageErr("list students: iterate", rows.Err())
}

// UpdateStudent updates the mutable profile fields of a student account.
// Credentials and the enrolled_at timestamp are not touched.
func (db *DB) UpdateStudent(ctx context.Context, s *models.Student) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE students SET first_name = ?, last_name = ?, email = ?,
			program = ?, level = ?, phone = ? WHERE id = ?`,
		s.FirstName, s.LastName, strings.ToLower(strings.TrimSpace(s.Email)),
		s.Program, s.Level, s.Phone, s.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return storageErr("update student", err)
	}
	return requireRow(res, ErrStudentNotFound, "update student")
}

// SetStudentActive activates or deactivates a student account. A deactivated
// account keeps its history but can no longer authenticate.
func (db *DB) SetStudentActive(ctx context.Context, id string, active bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE students SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return storageErr("set student active", err)
	}
	return requireRow(res, ErrStudentNotFound, "set student active")
}

const librarianColumns = `id, login, first_name, last_name, email, password_hash,
	role, active, created_at`

func scanLibrarian(row interface{ Scan(...any) error }) (*models.Librarian, error) {
	var l models.Librarian
	err := row.Scan(&l.ID, &l.Login, &l.FirstName, &l.LastName, &l.Email,
		&l.PasswordHash, &l.Role, &l.Active, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLibrarian registers a staff account. Login and email are unique.
func (db *DB) CreateLibrarian(ctx context.Context, l *models.Librarian, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return storageErr("create librarian: hash password", err)
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Role == "" {
		l.Role = models.RoleLibrarian
	}
	l.PasswordHash = string(hash)
	l.Active = true
	l.CreatedAt = db.now()
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO librarians (id, login, first_name, last_name, email, password_hash,
			role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Login, l.FirstName, l.LastName, l.Email, l.PasswordHash,
		l.Role, l.Active, l.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return storageErr("create librarian", err)
	}
	return nil
}

// GetLibrarian returns the librarian with the given ID.
func (db *DB) GetLibrarian(ctx context.Context, id string) (*models.Librarian, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+librarianColumns+` FROM librarians WHERE id = ?`, id)
	l, err := scanLibrarian(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLibrarianNotFound
	}
	if err != nil {
		return nil, storageErr("get librarian", err)
	}
	return l, nil
}

// Authenticate verifies credentials against both account kinds and returns
// the matching account. The identifier is a librarian login, a student
// matricule or a student email. Inactive accounts and wrong passwords both
// come back as ErrInvalidCredentials, never revealing which check failed.
func (db *DB) Authenticate(ctx context.Context, identifier, password string) (models.Account, error) {
	identifier = strings.TrimSpace(identifier)

	if l, err := db.librarianByLogin(ctx, identifier); err == nil {
		return verifyAccount(l, l.PasswordHash, l.Active, password)
	} else if IsStorageError(err) {
		return nil, err
	}

	s, err := db.studentByIdentifier(ctx, identifier)
	if err != nil {
		if IsStorageError(err) {
			return nil, err
		}
		// Burn a bcrypt comparison so a missing account takes as long as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		return nil, ErrInvalidCredentials
	}
	return verifyAccount(s, s.PasswordHash, s.Active, password)
}

func verifyAccount(acc models.Account, hash string, active bool, password string) (models.Account, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !active {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (db *DB) librarianByLogin(ctx context.Context, login string) (*models.Librarian, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+librarianColumns+` FROM librarians WHERE login = ?`, login)
	l, err := scanLibrarian(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLibrarianNotFound
	}
	if err != nil {
		return nil, storageErr("get librarian by login", err)
	}
	return l, nil
}

func (db *DB) studentByIdentifier(ctx context.Context, identifier string) (*models.Student, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE matricule = ? OR email = ?`,
		identifier, strings.ToLower(identifier))
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, storageErr("get student by identifier", err)
	}
	return s, nil
}
