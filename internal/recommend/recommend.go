// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

// Package recommend suggests books to students from the loan history.
//
// Two signals are used. Collaborative filtering scores the students whose
// borrowing overlaps the target student's, then surfaces the books those
// neighbors read that the target has not. When the student has no usable
// history the engine falls back to global popularity. A separate k-means
// pass groups students by the categories they borrow from, for the staff
// dashboard.
//
// All computations are deterministic: inputs are processed in sorted order
// and the clustering PRNG is fixed-seeded, so the same ledger always yields
// the same output.
package recommend

import (
	"context"
	"sort"

	"github.com/campuslib/biblio/internal/models"
)

// Source is the slice of the store the engine reads. *database.DB
// implements it.
type Source interface {
	LoanEvents(ctx context.Context) ([]models.LoanEvent, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)
}

// maxNeighbors caps how many similar students contribute to a
// recommendation.
const maxNeighbors = 10

// Engine computes recommendations and clusters over a Source.
type Engine struct {
	source Source
}

// New creates an engine reading from source.
func New(source Source) *Engine {
	return &Engine{source: source}
}

// Similarity returns the Jaccard similarity of two sets of book IDs:
// |intersection| / |union|, in [0, 1]. Two empty sets are defined as 0.
func Similarity(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// history is the loan ledger pivoted both ways.
type history struct {
	byStudent map[string]map[string]struct{} // student -> set of book IDs
	byBook    map[string]map[string]struct{} // book -> set of student IDs
}

func buildHistory(events []models.LoanEvent) *history {
	h := &history{
		byStudent: make(map[string]map[string]struct{}),
		byBook:    make(map[string]map[string]struct{}),
	}
	for _, e := range events {
		if h.byStudent[e.StudentID] == nil {
			h.byStudent[e.StudentID] = make(map[string]struct{})
		}
		h.byStudent[e.StudentID][e.BookID] = struct{}{}

		if h.byBook[e.BookID] == nil {
			h.byBook[e.BookID] = make(map[string]struct{})
		}
		h.byBook[e.BookID][e.StudentID] = struct{}{}
	}
	return h
}

// RecommendFor returns up to n books for the student, best candidates
// first. Books the student already borrowed are never suggested. A student
// with no history, or whose history overlaps nobody else's, gets the
// popularity fallback.
func (e *Engine) RecommendFor(ctx context.Context, studentID string, n int) ([]*models.Book, error) {
	if n <= 0 {
		n = 5
	}

	events, err := e.source.LoanEvents(ctx)
	if err != nil {
		return nil, err
	}
	h := buildHistory(events)

	seen := h.byStudent[studentID]
	if len(seen) == 0 {
		return e.mostPopularExcluding(ctx, events, nil, n)
	}

	// Score every other student by how many books they share with the
	// target, keep the closest neighbors.
	type neighbor struct {
		id      string
		overlap int
	}
	var neighbors []neighbor
	for other, books := range h.byStudent {
		if other == studentID {
			continue
		}
		overlap := 0
		for id := range seen {
			if _, ok := books[id]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			neighbors = append(neighbors, neighbor{id: other, overlap: overlap})
		}
	}
	if len(neighbors) == 0 {
		return e.mostPopularExcluding(ctx, events, seen, n)
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].overlap != neighbors[j].overlap {
			return neighbors[i].overlap > neighbors[j].overlap
		}
		return neighbors[i].id < neighbors[j].id
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}

	// Candidate books are what the neighbors read and the target did not,
	// weighted by each contributing neighbor's overlap.
	scores := make(map[string]int)
	for _, nb := range neighbors {
		for id := range h.byStudent[nb.id] {
			if _, ok := seen[id]; ok {
				continue
			}
			scores[id] += nb.overlap
		}
	}
	if len(scores) == 0 {
		return e.mostPopularExcluding(ctx, events, seen, n)
	}

	type candidate struct {
		id    string
		score int
	}
	candidates := make([]candidate, 0, len(scores))
	for id, score := range scores {
		candidates = append(candidates, candidate{id: id, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return e.resolveBooks(ctx, ids)
}

// MostPopular returns the n most borrowed books across all students.
func (e *Engine) MostPopular(ctx context.Context, n int) ([]*models.Book, error) {
	if n <= 0 {
		n = 5
	}
	events, err := e.source.LoanEvents(ctx)
	if err != nil {
		return nil, err
	}
	return e.mostPopularExcluding(ctx, events, nil, n)
}

// mostPopularExcluding ranks books by loan count, skipping the excluded
// set, and resolves the top n.
func (e *Engine) mostPopularExcluding(ctx context.Context, events []models.LoanEvent, exclude map[string]struct{}, n int) ([]*models.Book, error) {
	counts := make(map[string]int)
	for _, ev := range events {
		if _, skip := exclude[ev.BookID]; skip {
			continue
		}
		counts[ev.BookID]++
	}

	type ranked struct {
		id    string
		count int
	}
	rankedBooks := make([]ranked, 0, len(counts))
	for id, count := range counts {
		rankedBooks = append(rankedBooks, ranked{id: id, count: count})
	}
	sort.Slice(rankedBooks, func(i, j int) bool {
		if rankedBooks[i].count != rankedBooks[j].count {
			return rankedBooks[i].count > rankedBooks[j].count
		}
		return rankedBooks[i].id < rankedBooks[j].id
	})
	if len(rankedBooks) > n {
		rankedBooks = rankedBooks[:n]
	}

	ids := make([]string, len(rankedBooks))
	for i, r := range rankedBooks {
		ids[i] = r.id
	}
	return e.resolveBooks(ctx, ids)
}

// BookSimilarity returns the Jaccard similarity of two books measured over
// the sets of students who borrowed them.
func (e *Engine) BookSimilarity(ctx context.Context, bookA, bookB string) (float64, error) {
	events, err := e.source.LoanEvents(ctx)
	if err != nil {
		return 0, err
	}
	h := buildHistory(events)

	return Similarity(setToSlice(h.byBook[bookA]), setToSlice(h.byBook[bookB])), nil
}

func setToSlice(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// ByCategory returns up to n currently available books of one category, in
// catalog insertion order.
func (e *Engine) ByCategory(ctx context.Context, category string, n int) ([]*models.Book, error) {
	if n <= 0 {
		n = 5
	}

	books, err := e.source.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	var inCategory []*models.Book
	for _, b := range books {
		if b.Category == category && b.IsAvailable() {
			inCategory = append(inCategory, b)
		}
	}
	sort.SliceStable(inCategory, func(i, j int) bool {
		if !inCategory[i].CreatedAt.Equal(inCategory[j].CreatedAt) {
			return inCategory[i].CreatedAt.Before(inCategory[j].CreatedAt)
		}
		return inCategory[i].ID < inCategory[j].ID
	})
	if len(inCategory) > n {
		inCategory = inCategory[:n]
	}
	return inCategory, nil
}

// resolveBooks loads the given book IDs preserving order. Books deleted
// since the loan history was written are silently skipped.
func (e *Engine) resolveBooks(ctx context.Context, ids []string) ([]*models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	books, err := e.source.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	resolved := make([]*models.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			resolved = append(resolved, b)
		}
	}
	return resolved, nil
}
