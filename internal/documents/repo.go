package documents

import "context"

// Repo defines persistence operations for documents. Every status change is a
// compare-and-set: the write only lands if the stored status matches the
// caller's expectation, otherwise ErrConflict.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	// Transition flips from -> to without touching other fields.
	Transition(ctx context.Context, documentID string, from, to Status) error
	// MarkExtracted commits the extraction outputs atomically with
	// extracting -> extracted.
	MarkExtracted(ctx context.Context, documentID string, charCount int, title string, cost int64) error
	// MarkFailed records the error message with extracting/analyzing -> failed.
	MarkFailed(ctx context.Context, documentID string, errorMessage string) error
}
