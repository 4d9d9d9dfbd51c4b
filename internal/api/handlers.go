// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuslib/biblio/internal/database"
	"github.com/campuslib/biblio/internal/models"
	"github.com/campuslib/biblio/internal/recommend"
)

// Server holds the handler dependencies: the store and the recommendation
// engine reading from it.
type Server struct {
	db     *database.DB
	engine *recommend.Engine
}

// NewServer creates the handler set over the given store.
func NewServer(db *database.DB) *Server {
	return &Server{
		db:     db,
		engine: recommend.New(db),
	}
}

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_DOWN", "database not reachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- auth ---

type loginRequest struct {
	// Identifier is a librarian login, a student matricule or a student
	// email.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"` // "student" or "librarian"
	Role        string `json:"role,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := s.db.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	resp := loginResponse{
		AccountID:   account.AccountID(),
		DisplayName: account.DisplayName(),
	}
	switch acc := account.(type) {
	case *models.Student:
		resp.Kind = "student"
	case *models.Librarian:
		resp.Kind = "librarian"
		resp.Role = string(acc.Role)
	}
	respondJSON(w, http.StatusOK, resp)
}

// --- catalog ---

type bookRequest struct {
	ISBN            string `json:"isbn" validate:"omitempty,min=10,max=20"`
	Title           string `json:"title" validate:"required,max=300"`
	Category        string `json:"category" validate:"max=100"`
	Publisher       string `json:"publisher" validate:"max=200"`
	PublicationYear int    `json:"publication_year" validate:"omitempty,gte=0,lte=2100"`
	PageCount       int    `json:"page_count" validate:"omitempty,gte=0"`
	Language        string `json:"language" validate:"max=50"`
	Description     string `json:"description" validate:"max=5000"`
	TotalCopies     int    `json:"total_copies" validate:"omitempty,gte=1"`
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book := &models.Book{
		ISBN:            req.ISBN,
		Title:           req.Title,
		Category:        req.Category,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		PageCount:       req.PageCount,
		Language:        req.Language,
		Description:     req.Description,
		TotalCopies:     req.TotalCopies,
	}
	if err := s.db.CreateBook(r.Context(), book); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	var (
		books []*models.Book
		err   error
	)
	switch {
	case r.URL.Query().Get("category") != "":
		books, err = s.db.ListBooksByCategory(r.Context(), r.URL.Query().Get("category"))
	default:
		books, err = s.db.SearchBooks(r.Context(), r.URL.Query().Get("q"))
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.db.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book := &models.Book{
		ID:              chi.URLParam(r, "id"),
		ISBN:            req.ISBN,
		Title:           req.Title,
		Category:        req.Category,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		PageCount:       req.PageCount,
		Language:        req.Language,
		Description:     req.Description,
	}
	if err := s.db.UpdateBook(r.Context(), book); err != nil {
		respondStoreError(w, err)
		return
	}

	updated, err := s.db.GetBook(r.Context(), book.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.db.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	respondJSON(w, http.StatusOK, categories)
}

// --- membership ---

type studentRequest struct {
	Matricule string `json:"matricule" validate:"required,max=50"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Program   string `json:"program" validate:"max=100"`
	Level     string `json:"level" validate:"omitempty,oneof=L1 L2 L3 M1 M2"`
	Phone     string `json:"phone" validate:"max=30"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	student := &models.Student{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Program:   req.Program,
		Level:     req.Level,
		Phone:     req.Phone,
	}
	if err := s.db.CreateStudent(r.Context(), student, req.Password); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, student)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.db.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, student)
}

func (s *Server) handleStudentLoans(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	if _, err := s.db.GetStudent(r.Context(), studentID); err != nil {
		respondStoreError(w, err)
		return
	}

	loans, err := s.db.ListLoansByStudent(r.Context(), studentID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	respondJSON(w, http.StatusOK, loans)
}

func (s *Server) handleStudentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.db.StudentLoanSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStudentReservations(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	if _, err := s.db.GetStudent(r.Context(), studentID); err != nil {
		respondStoreError(w, err)
		return
	}

	reservations, err := s.db.ListReservationsByStudent(r.Context(), studentID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if reservations == nil {
		reservations = []*models.Reservation{}
	}
	respondJSON(w, http.StatusOK, reservations)
}

// --- loans ---

type borrowRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	BookID    string `json:"book_id" validate:"required"`
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loan, err := s.db.BorrowBook(r.Context(), req.StudentID, req.BookID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	loan, err := s.db.ReturnLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (s *Server) handleRecentLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.db.ListRecentLoans(r.Context(), intQueryParam(r, "limit", 5))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	respondJSON(w, http.StatusOK, loans)
}

func (s *Server) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.db.ListOverdueLoans(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}
	respondJSON(w, http.StatusOK, loans)
}

// --- reservations ---

type reserveRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	BookID    string `json:"book_id" validate:"required"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reservation, err := s.db.Reserve(r.Context(), req.StudentID, req.BookID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.db.CancelReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

func (s *Server) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := s.db.ConfirmReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// --- recommendations and statistics ---

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if _, err := s.db.GetStudent(r.Context(), studentID); err != nil {
		respondStoreError(w, err)
		return
	}

	n := intQueryParam(r, "n", 5)
	books, err := s.engine.RecommendFor(r.Context(), studentID, n)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}
	respondJSON(w, http.StatusOK, books)
}

func (s *Server) handlePopularBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.engine.MostPopular(r.Context(), intQueryParam(r, "n", 5))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}
	respondJSON(w, http.StatusOK, books)
}

func (s *Server) handleLoanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.LoanStatistics(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.engine.ClusterStudents(r.Context(), intQueryParam(r, "k", 3))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, clusters)
}
