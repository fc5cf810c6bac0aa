package results

import "context"

// Repo persists analysis results. CompleteAnalysis also flips the owning
// document from analyzing to analyzed in the same unit of work, so a
// stored result and an analyzed document always appear together.
type Repo interface {
	CompleteAnalysis(ctx context.Context, res Result) error
	GetByDocument(ctx context.Context, documentID string) (Result, error)
}
