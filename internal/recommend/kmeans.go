// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package recommend

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/campuslib/biblio/internal/models"
)

// Clustering parameters. The seed is fixed so the same ledger always
// produces the same grouping; cluster labels are stable across runs.
const (
	kmeansSeed       = 42
	kmeansIterations = 10
)

// ClusterStudents groups students into at most k clusters by the categories
// they borrow from. Each student with at least one loan becomes a vector of
// per-category loan counts; plain Lloyd iterations assign them to the
// nearest centroid by Euclidean distance.
//
// Returns a map of student ID to cluster index in [0, k). Students without
// loans are absent. If the history carries no categories at all the result
// is empty. k is clamped to the number of students.
func (e *Engine) ClusterStudents(ctx context.Context, k int) (map[string]int, error) {
	events, err := e.source.LoanEvents(ctx)
	if err != nil {
		return nil, err
	}

	students, vectors := buildFeatureVectors(events)
	if len(students) == 0 {
		return map[string]int{}, nil
	}
	if k <= 0 {
		k = 3
	}
	if k > len(students) {
		k = len(students)
	}

	assignment := lloyd(vectors, k)

	clusters := make(map[string]int, len(students))
	for i, id := range students {
		clusters[id] = assignment[i]
	}
	return clusters, nil
}

// buildFeatureVectors pivots the history into per-student category count
// vectors. The vocabulary is the sorted union of non-empty categories and
// students come out sorted by ID, so downstream iteration is deterministic.
func buildFeatureVectors(events []models.LoanEvent) ([]string, [][]float64) {
	counts := make(map[string]map[string]int) // student -> category -> count
	vocabulary := make(map[string]struct{})
	for _, e := range events {
		if e.Category == "" {
			continue
		}
		vocabulary[e.Category] = struct{}{}
		if counts[e.StudentID] == nil {
			counts[e.StudentID] = make(map[string]int)
		}
		counts[e.StudentID][e.Category]++
	}
	if len(vocabulary) == 0 {
		return nil, nil
	}

	categories := make([]string, 0, len(vocabulary))
	for c := range vocabulary {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	students := make([]string, 0, len(counts))
	for id := range counts {
		students = append(students, id)
	}
	sort.Strings(students)

	vectors := make([][]float64, len(students))
	for i, id := range students {
		v := make([]float64, len(categories))
		for j, c := range categories {
			v[j] = float64(counts[id][c])
		}
		vectors[i] = v
	}
	return students, vectors
}

// lloyd runs fixed-iteration k-means and returns each vector's cluster
// index. Initial centroids are k distinct vectors sampled with the fixed
// seed; a cluster that loses all members keeps its previous centroid.
func lloyd(vectors [][]float64, k int) []int {
	rng := rand.New(rand.NewSource(kmeansSeed))
	dims := len(vectors[0])

	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(vectors))[:k] {
		centroids[i] = append([]float64(nil), vectors[idx]...)
	}

	assignment := make([]int, len(vectors))
	for iter := 0; iter < kmeansIterations; iter++ {
		for i, v := range vectors {
			assignment[i] = nearestCentroid(v, centroids)
		}

		sums := make([][]float64, k)
		sizes := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, v := range vectors {
			c := assignment[i]
			sizes[c]++
			for j, x := range v {
				sums[c][j] += x
			}
		}
		for c := 0; c < k; c++ {
			if sizes[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(sizes[c])
			}
		}
	}

	for i, v := range vectors {
		assignment[i] = nearestCentroid(v, centroids)
	}
	return assignment
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := squaredDistance(v, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
