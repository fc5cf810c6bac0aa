package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedDoc(t *testing.T, repo *MemoryRepo, status Status) Document {
	t.Helper()
	doc := Document{
		ID:               "doc-1",
		FileName:         "abc123.pdf",
		OriginalFilename: "novel.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        42,
		StorageKey:       "abc123.pdf",
		Status:           status,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return doc
}

func TestTransitionHappyPath(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, StatusUploaded)
	ctx := context.Background()

	if err := repo.Transition(ctx, "doc-1", StatusUploaded, StatusExtracting); err != nil {
		t.Fatalf("uploaded->extracting: %v", err)
	}
	if err := repo.MarkExtracted(ctx, "doc-1", 500, "A Title", 350); err != nil {
		t.Fatalf("MarkExtracted: %v", err)
	}

	doc, err := repo.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != StatusExtracted {
		t.Fatalf("expected extracted, got %s", doc.Status)
	}
	if doc.CharCount == nil || *doc.CharCount != 500 {
		t.Fatalf("expected char count 500, got %v", doc.CharCount)
	}
	if doc.Title == nil || *doc.Title != "A Title" {
		t.Fatalf("expected title, got %v", doc.Title)
	}
	if doc.AnalysisCost == nil || *doc.AnalysisCost != 350 {
		t.Fatalf("expected cost 350, got %v", doc.AnalysisCost)
	}
	if doc.ErrorMessage != nil {
		t.Fatalf("expected no error message, got %q", *doc.ErrorMessage)
	}
}

func TestTransitionConflictOnStaleFrom(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, StatusExtracted)
	ctx := context.Background()

	if err := repo.Transition(ctx, "doc-1", StatusExtracted, StatusAnalyzing); err != nil {
		t.Fatalf("extracted->analyzing: %v", err)
	}
	// Second trigger loses the race.
	if err := repo.Transition(ctx, "doc-1", StatusExtracted, StatusAnalyzing); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	for _, terminal := range []Status{StatusAnalyzed, StatusFailed} {
		repo.data = map[string]Document{}
		seedDoc(t, repo, terminal)
		if err := repo.Transition(ctx, "doc-1", terminal, StatusExtracting); !errors.Is(err, ErrConflict) {
			t.Fatalf("transition out of %s: expected ErrConflict, got %v", terminal, err)
		}
		if err := repo.MarkFailed(ctx, "doc-1", "boom"); !errors.Is(err, ErrConflict) {
			t.Fatalf("MarkFailed from %s: expected ErrConflict, got %v", terminal, err)
		}
	}
}

func TestMarkFailedSetsMessage(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, StatusExtracting)
	ctx := context.Background()

	if err := repo.MarkFailed(ctx, "doc-1", "corrupt file"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	doc, _ := repo.GetByID(ctx, "doc-1")
	if doc.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
	if doc.ErrorMessage == nil || *doc.ErrorMessage != "corrupt file" {
		t.Fatalf("expected error message, got %v", doc.ErrorMessage)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Transition(context.Background(), "missing", StatusUploaded, StatusExtracting); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
