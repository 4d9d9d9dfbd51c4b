// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

// Package api is the local HTTP facade over the store and the
// recommendation engine. A presentation shell (desktop frontend) talks to
// it on the loopback interface; the facade owns request validation and the
// mapping of store errors onto HTTP statuses.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with all routes mounted under /api/v1.
func NewRouter(s *Server, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.Get("/popular", s.handlePopularBooks)
			r.Get("/{id}", s.handleGetBook)
			r.Put("/{id}", s.handleUpdateBook)
			r.Delete("/{id}", s.handleDeleteBook)
		})
		r.Get("/categories", s.handleListCategories)

		r.Route("/students", func(r chi.Router) {
			r.Post("/", s.handleCreateStudent)
			r.Get("/{id}", s.handleGetStudent)
			r.Get("/{id}/loans", s.handleStudentLoans)
			r.Get("/{id}/summary", s.handleStudentSummary)
			r.Get("/{id}/reservations", s.handleStudentReservations)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", s.handleBorrow)
			r.Post("/{id}/return", s.handleReturn)
			r.Get("/overdue", s.handleOverdueLoans)
			r.Get("/recent", s.handleRecentLoans)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", s.handleReserve)
			r.Post("/{id}/cancel", s.handleCancelReservation)
			r.Post("/{id}/confirm", s.handleConfirmReservation)
		})

		r.Get("/recommendations/{studentID}", s.handleRecommendations)
		r.Get("/stats/loans", s.handleLoanStats)
		r.Get("/clusters", s.handleClusters)
	})

	return r
}
