package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo, used by tests and
// DB-less dev runs. Safe for concurrent use.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]Document
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Create stores the document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Transition flips from -> to if the stored status still matches from.
func (r *MemoryRepo) Transition(ctx context.Context, documentID string, from, to Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from.Terminal() {
		return ErrConflict
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != from {
		return ErrConflict
	}
	doc.Status = to
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

// MarkExtracted commits extraction outputs with extracting -> extracted.
func (r *MemoryRepo) MarkExtracted(ctx context.Context, documentID string, charCount int, title string, cost int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusExtracting {
		return ErrConflict
	}
	doc.Status = StatusExtracted
	doc.CharCount = &charCount
	doc.Title = &title
	doc.AnalysisCost = &cost
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}

// MarkFailed records the failure message; only the busy states can fail.
func (r *MemoryRepo) MarkFailed(ctx context.Context, documentID string, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.Status != StatusExtracting && doc.Status != StatusAnalyzing {
		return ErrConflict
	}
	doc.Status = StatusFailed
	doc.ErrorMessage = &errorMessage
	doc.UpdatedAt = time.Now().UTC()
	r.data[documentID] = doc
	return nil
}
