// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslib/biblio/internal/config"
	"github.com/campuslib/biblio/internal/database"
	"github.com/campuslib/biblio/internal/models"
)

var apiTestEpoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func setupAPI(t *testing.T) (*database.DB, http.Handler) {
	t.Helper()

	db, err := database.New(
		&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 2},
		config.PolicyConfig{LoanDays: 14, PenaltyPerDay: 100, ReservationDays: 3, MaxLoansPerStudent: 5},
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	db.SetNowFunc(func() time.Time { return apiTestEpoch })

	return db, NewRouter(NewServer(db), 10*time.Second)
}

// doJSON performs a request with an optional JSON body and decodes the
// response envelope.
func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, *response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope),
		"response body: %s", rec.Body.String())
	return rec, &envelope
}

func seedStudent(t *testing.T, db *database.DB, matricule, email string) *models.Student {
	t.Helper()
	s := &models.Student{
		Matricule: matricule,
		FirstName: "Test",
		LastName:  "Student",
		Email:     email,
		Program:   "Data Science",
		Level:     "M1",
	}
	require.NoError(t, db.CreateStudent(context.Background(), s, "s3cret-pass"))
	return s
}

func seedBook(t *testing.T, db *database.DB, title, category string, copies int) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Category: category, TotalCopies: copies, Language: "French"}
	require.NoError(t, db.CreateBook(context.Background(), b))
	return b
}

func TestHealthEndpoint(t *testing.T) {
	_, h := setupAPI(t)
	rec, envelope := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", envelope.Status)
}

func TestBorrowEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	student := seedStudent(t, db, "ENSEA-0001", "one@univ.test")
	book := seedBook(t, db, "Go in Action", "Informatique", 1)

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/loans",
		map[string]string{"student_id": student.ID, "book_id": book.ID})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "ok", envelope.Status)

	// The single copy is gone now.
	other := seedStudent(t, db, "ENSEA-0002", "two@univ.test")
	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/loans",
		map[string]string{"student_id": other.ID, "book_id": book.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "BOOK_UNAVAILABLE", envelope.Error.Code)

	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/loans",
		map[string]string{"student_id": student.ID, "book_id": "no-such-book"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)

	// Missing fields are rejected before touching the store.
	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/loans",
		map[string]string{"student_id": student.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestReturnEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	student := seedStudent(t, db, "ENSEA-0003", "three@univ.test")
	book := seedBook(t, db, "Clean Code", "Informatique", 1)

	loan, err := db.BorrowBook(context.Background(), student.ID, book.ID)
	require.NoError(t, err)

	// 20 days in: 6 whole days late at 100 per day.
	db.SetNowFunc(func() time.Time { return apiTestEpoch.AddDate(0, 0, 20) })

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/loans/"+loan.ID+"/return", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var returned models.Loan
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &returned))
	assert.Equal(t, int64(600), returned.Penalty)
	assert.Equal(t, models.LoanStatusReturned, returned.Status)

	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/loans/"+loan.ID+"/return", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "LOAN_ALREADY_RETURNED", envelope.Error.Code)
}

func TestReservationEndpoints(t *testing.T) {
	db, h := setupAPI(t)
	student := seedStudent(t, db, "ENSEA-0004", "four@univ.test")
	book := seedBook(t, db, "Dune", "Science-Fiction", 1)

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/reservations",
		map[string]string{"student_id": student.ID, "book_id": book.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reservation models.Reservation
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &reservation))
	assert.Equal(t, models.ReservationStatusPending, reservation.Status)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+reservation.ID+"/confirm", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+reservation.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "RESERVATION_NOT_PENDING", envelope.Error.Code)

	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/reservations/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestLoginEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	seedStudent(t, db, "ENSEA-0005", "five@univ.test")

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"identifier": "ENSEA-0005", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "student", resp.Kind)
	assert.Equal(t, "Test Student", resp.DisplayName)

	rec, envelope = doJSON(t, h, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"identifier": "ENSEA-0005", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestCreateBookEndpointValidation(t *testing.T) {
	_, h := setupAPI(t)

	rec, envelope := doJSON(t, h, http.MethodPost, "/api/v1/books",
		map[string]interface{}{"category": "Informatique"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/books",
		map[string]interface{}{"title": "Valid Book", "category": "Informatique", "total_copies": 2})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestDeleteBookInUseEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	student := seedStudent(t, db, "ENSEA-0009", "nine@univ.test")
	book := seedBook(t, db, "Borrowed", "Essai", 1)

	_, err := db.BorrowBook(context.Background(), student.ID, book.ID)
	require.NoError(t, err)

	rec, envelope := doJSON(t, h, http.MethodDelete, "/api/v1/books/"+book.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "BOOK_IN_USE", envelope.Error.Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	ctx := context.Background()

	alice := seedStudent(t, db, "ENSEA-0006", "six@univ.test")
	bob := seedStudent(t, db, "ENSEA-0007", "seven@univ.test")
	shared := seedBook(t, db, "Shared", "Informatique", 5)
	extra := seedBook(t, db, "Extra", "Informatique", 5)

	_, err := db.BorrowBook(ctx, alice.ID, shared.ID)
	require.NoError(t, err)
	_, err = db.BorrowBook(ctx, bob.ID, shared.ID)
	require.NoError(t, err)
	_, err = db.BorrowBook(ctx, bob.ID, extra.ID)
	require.NoError(t, err)

	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/recommendations/"+alice.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var books []*models.Book
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &books))
	require.Len(t, books, 1)
	assert.Equal(t, extra.ID, books[0].ID)

	rec, envelope = doJSON(t, h, http.MethodGet, "/api/v1/recommendations/no-such-student", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
}

func TestStatsAndClustersEndpoints(t *testing.T) {
	db, h := setupAPI(t)
	ctx := context.Background()

	student := seedStudent(t, db, "ENSEA-0008", "eight@univ.test")
	book := seedBook(t, db, "Analyse", "Mathematiques", 1)
	_, err := db.BorrowBook(ctx, student.ID, book.ID)
	require.NoError(t, err)

	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/stats/loans", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.LoanStatistics
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 1, stats.TotalLoans)
	assert.Equal(t, 1, stats.OpenLoans)

	rec, envelope = doJSON(t, h, http.MethodGet, "/api/v1/clusters?k=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	clusters := map[string]int{}
	raw, err = json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &clusters))
	assert.Len(t, clusters, 1)
}

func TestSearchBooksEndpoint(t *testing.T) {
	db, h := setupAPI(t)
	seedBook(t, db, "Python avance", "Informatique", 1)
	seedBook(t, db, "Histoire ancienne", "Histoire", 1)

	rec, envelope := doJSON(t, h, http.MethodGet, "/api/v1/books?q=python", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var books []*models.Book
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Python avance", books[0].Title)

	rec, envelope = doJSON(t, h, http.MethodGet, "/api/v1/books?category=Histoire", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	raw, err = json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Histoire ancienne", books[0].Title)
}
