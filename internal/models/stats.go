// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package models

// LoanStatistics aggregates the loan ledger for the staff dashboard.
type LoanStatistics struct {
	TotalLoans    int             `json:"total_loans"`
	OpenLoans     int             `json:"open_loans"`
	OverdueLoans  int             `json:"overdue_loans"`
	TotalPenalty  int64           `json:"total_penalty"`
	TopCategories []CategoryCount `json:"top_categories"`
}

// CategoryCount is a category with its historical loan count.
type CategoryCount struct {
	Category  string `json:"category"`
	LoanCount int    `json:"loan_count"`
}

// LoanEvent is the flattened view of one historical loan that the
// recommendation engine consumes: who borrowed what, and the book's
// category. Open and returned loans both count.
type LoanEvent struct {
	StudentID string
	BookID    string
	Category  string
}

// StudentLoanSummary aggregates one student's lending activity for the
// student dashboard.
type StudentLoanSummary struct {
	StudentID      string `json:"student_id"`
	OpenLoans      int    `json:"open_loans"`
	OverdueLoans   int    `json:"overdue_loans"`
	AccruedPenalty int64  `json:"accrued_penalty"` // open loans, accrued to now
	TotalLoans     int    `json:"total_loans"`
}
