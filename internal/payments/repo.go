package payments

import "context"

// Repo defines persistence operations for payments.
type Repo interface {
	// Create inserts a payment; ErrDuplicateIntent if the intent reference
	// is already recorded.
	Create(ctx context.Context, payment Payment) error
	GetByID(ctx context.Context, paymentID string) (Payment, error)
	GetByIntent(ctx context.Context, intentID string) (Payment, error)
	// MarkStatusByIntent sets the status for the payment owning intentID.
	// Applying the same status twice is a no-op, and a completed payment is
	// never downgraded; the bool reports whether this call changed the row.
	MarkStatusByIntent(ctx context.Context, intentID string, status Status) (Payment, bool, error)
}
