package results

import (
	"context"
	"sync"

	"dreamdoc-backend/internal/documents"
)

// MemoryRepo is an in-memory Repo for local runs and tests. It flips the
// document status through the supplied documents repo so the two stay in
// step the same way the Postgres transaction keeps them.
type MemoryRepo struct {
	mu        sync.Mutex
	byDoc     map[string]Result
	documents documents.Repo
}

var _ Repo = (*MemoryRepo)(nil)

func NewMemoryRepo(docs documents.Repo) *MemoryRepo {
	return &MemoryRepo{
		byDoc:     make(map[string]Result),
		documents: docs,
	}
}

func (r *MemoryRepo) CompleteAnalysis(ctx context.Context, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.documents.Transition(ctx, res.DocumentID, documents.StatusAnalyzing, documents.StatusAnalyzed); err != nil {
		return err
	}
	r.byDoc[res.DocumentID] = res
	return nil
}

func (r *MemoryRepo) GetByDocument(_ context.Context, documentID string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byDoc[documentID]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}
