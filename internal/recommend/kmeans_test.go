// Biblio - University Library Management Core
// Copyright 2026 The Biblio Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/campuslib/biblio

package recommend

import (
	"context"
	"testing"

	"github.com/campuslib/biblio/internal/models"
)

func clusterFixture() *fakeSource {
	// Two sharply separated profiles: three students borrow only
	// Informatique, two borrow only Histoire.
	return &fakeSource{
		events: []models.LoanEvent{
			event("dev1", "b1", "Informatique"),
			event("dev1", "b2", "Informatique"),
			event("dev2", "b1", "Informatique"),
			event("dev2", "b3", "Informatique"),
			event("dev3", "b2", "Informatique"),
			event("hist1", "b7", "Histoire"),
			event("hist1", "b8", "Histoire"),
			event("hist2", "b7", "Histoire"),
		},
	}
}

func TestClusterStudentsSeparatesProfiles(t *testing.T) {
	engine := New(clusterFixture())

	clusters, err := engine.ClusterStudents(context.Background(), 2)
	if err != nil {
		t.Fatalf("ClusterStudents() error = %v", err)
	}
	if len(clusters) != 5 {
		t.Fatalf("ClusterStudents() covered %d students, want 5", len(clusters))
	}

	if clusters["dev1"] != clusters["dev2"] || clusters["dev2"] != clusters["dev3"] {
		t.Errorf("informatique students split across clusters: %v", clusters)
	}
	if clusters["hist1"] != clusters["hist2"] {
		t.Errorf("histoire students split across clusters: %v", clusters)
	}
	if clusters["dev1"] == clusters["hist1"] {
		t.Errorf("distinct profiles merged into one cluster: %v", clusters)
	}
}

func TestClusterStudentsDeterministic(t *testing.T) {
	engine := New(clusterFixture())
	ctx := context.Background()

	first, err := engine.ClusterStudents(ctx, 2)
	if err != nil {
		t.Fatalf("ClusterStudents() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.ClusterStudents(ctx, 2)
		if err != nil {
			t.Fatalf("ClusterStudents() error = %v", err)
		}
		for id, c := range first {
			if again[id] != c {
				t.Fatalf("run %d: cluster of %s changed from %d to %d", i, id, c, again[id])
			}
		}
	}
}

func TestClusterStudentsClampsK(t *testing.T) {
	engine := New(&fakeSource{
		events: []models.LoanEvent{
			event("solo", "b1", "Informatique"),
			event("duo", "b2", "Histoire"),
		},
	})

	clusters, err := engine.ClusterStudents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClusterStudents() error = %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("ClusterStudents() covered %d students, want 2", len(clusters))
	}
	for id, c := range clusters {
		if c < 0 || c >= 2 {
			t.Errorf("cluster index %d for %s out of range [0,2)", c, id)
		}
	}
}

func TestClusterStudentsEmptyHistory(t *testing.T) {
	engine := New(&fakeSource{})

	clusters, err := engine.ClusterStudents(context.Background(), 3)
	if err != nil {
		t.Fatalf("ClusterStudents() error = %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("ClusterStudents() on empty history = %v, want empty map", clusters)
	}
}

func TestClusterStudentsIgnoresUncategorized(t *testing.T) {
	engine := New(&fakeSource{
		events: []models.LoanEvent{
			event("s1", "b1", ""),
			event("s2", "b2", ""),
		},
	})

	clusters, err := engine.ClusterStudents(context.Background(), 2)
	if err != nil {
		t.Fatalf("ClusterStudents() error = %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("ClusterStudents() with no categories = %v, want empty map", clusters)
	}
}

func TestBuildFeatureVectorsStableOrder(t *testing.T) {
	events := []models.LoanEvent{
		event("zoe", "b1", "Histoire"),
		event("ada", "b2", "Informatique"),
		event("ada", "b3", "Informatique"),
	}

	students, vectors := buildFeatureVectors(events)
	if len(students) != 2 || students[0] != "ada" || students[1] != "zoe" {
		t.Fatalf("students = %v, want sorted [ada zoe]", students)
	}

	// Vocabulary is sorted: Histoire then Informatique.
	if vectors[0][0] != 0 || vectors[0][1] != 2 {
		t.Errorf("ada vector = %v, want [0 2]", vectors[0])
	}
	if vectors[1][0] != 1 || vectors[1][1] != 0 {
		t.Errorf("zoe vector = %v, want [1 0]", vectors[1])
	}
}
