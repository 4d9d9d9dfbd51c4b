// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/campuslib/biblio/internal/database"
	"github.com/campuslib/biblio/internal/logging"
	"github.com/campuslib/biblio/internal/validation"
)

// response is the envelope every endpoint answers with.
type response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *apiError   `json:"error,omitempty"`
}

// apiError carries a stable machine-readable code next to the message, so
// the frontend can branch without parsing prose.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON sends a success envelope.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(&response{Status: "ok", Data: data})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(&response{
		Status: "error",
		Error:  &apiError{Code: code, Message: message},
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON error")
	}
}

// decodeJSON parses and validates a request body into dst. On failure it has
// already answered the request and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON: "+err.Error())
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return false
	}
	return true
}

// respondStoreError maps store errors onto HTTP statuses and stable codes.
// Business rejections are the caller's problem (4xx, not logged);
// infrastructure failures are ours (500, logged).
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrBookNotFound),
		errors.Is(err, database.ErrStudentNotFound),
		errors.Is(err, database.ErrLibrarianNotFound),
		errors.Is(err, database.ErrAuthorNotFound),
		errors.Is(err, database.ErrLoanNotFound),
		errors.Is(err, database.ErrReservationNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())

	case errors.Is(err, database.ErrBookUnavailable):
		respondError(w, http.StatusConflict, "BOOK_UNAVAILABLE", err.Error())
	case errors.Is(err, database.ErrBookInUse):
		respondError(w, http.StatusConflict, "BOOK_IN_USE", err.Error())
	case errors.Is(err, database.ErrLoanLimitExceeded):
		respondError(w, http.StatusConflict, "LOAN_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, database.ErrLoanAlreadyReturned):
		respondError(w, http.StatusConflict, "LOAN_ALREADY_RETURNED", err.Error())
	case errors.Is(err, database.ErrReservationNotPending):
		respondError(w, http.StatusConflict, "RESERVATION_NOT_PENDING", err.Error())
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, "DUPLICATE", err.Error())

	case errors.Is(err, database.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())

	default:
		logging.Error().Err(err).Msg("Storage failure")
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "internal storage failure")
	}
}

// intQueryParam reads an integer query parameter, falling back to def when
// absent or malformed.
func intQueryParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
