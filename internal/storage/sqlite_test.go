package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := appliedMigrations(s1.db)
	if err != nil {
		t.Fatalf("appliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := appliedMigrations(s2.db)
	if err != nil {
		t.Fatalf("appliedMigrations: %v", err)
	}

	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("migrations changed across opens: %v -> %v", v1, v2)
	}
	if want := []int{1, 2}; !reflect.DeepEqual(v2, want) {
		t.Errorf("applied = %v, want %v", v2, want)
	}
}

func TestOpenDB_IndexSchema(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "experience.db"), SchemaIndex)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='experience_chunks'").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Error("experience_chunks table missing")
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='proposals'").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("proposals table created in the index database")
	}
}

func TestOpenDB_UnknownSchema(t *testing.T) {
	if _, err := OpenDB(":memory:", "nope"); err == nil {
		t.Error("OpenDB(unknown schema) error = nil, want error")
	}
}

func TestSaveAndGetProposal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := ProposalRecord{
		ID:                   "p-1",
		CreatedAt:            time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		Tone:                 "formal",
		Content:              "Dear hiring manager",
		ConfidenceScore:      0.84,
		MatchedSkills:        []string{"Go", "SQL"},
		RequirementsDegraded: true,
		PostingExcerpt:       "Need a Go developer",
	}
	if err := s.SaveProposal(ctx, want); err != nil {
		t.Fatalf("SaveProposal: %v", err)
	}

	got, err := s.GetProposal(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetProposal() = %+v, want %+v", got, want)
	}
}

func TestGetProposal_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetProposal(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProposal() error = %v, want ErrNotFound", err)
	}
}

func TestSaveProposal_NilSkillsStoredAsEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SaveProposal(ctx, ProposalRecord{ID: "p", Tone: "casual"}); err != nil {
		t.Fatalf("SaveProposal: %v", err)
	}
	got, err := s.GetProposal(ctx, "p")
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if got.MatchedSkills == nil || len(got.MatchedSkills) != 0 {
		t.Errorf("MatchedSkills = %#v, want empty slice", got.MatchedSkills)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestRecentProposals_NewestWindowOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		err := s.SaveProposal(ctx, ProposalRecord{
			ID:        fmt.Sprintf("p-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Tone:      "professional",
		})
		if err != nil {
			t.Fatalf("SaveProposal %d: %v", i, err)
		}
	}

	got, err := s.RecentProposals(ctx, 5)
	if err != nil {
		t.Fatalf("RecentProposals: %v", err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := []string{"p-2", "p-3", "p-4", "p-5", "p-6"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("RecentProposals ids = %v, want %v", ids, want)
	}

	n, err := s.CountProposals(ctx)
	if err != nil {
		t.Fatalf("CountProposals: %v", err)
	}
	if n != 7 {
		t.Errorf("CountProposals = %d, want 7", n)
	}
}
