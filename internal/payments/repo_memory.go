package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo, safe for concurrent use.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Payment
	byIntent map[string]string // intentID -> paymentID
}

var _ Repo = (*MemoryRepo)(nil)

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Payment),
		byIntent: make(map[string]string),
	}
}

// Create stores the payment, enforcing intent uniqueness.
func (r *MemoryRepo) Create(ctx context.Context, payment Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byIntent[payment.IntentID]; exists {
		return ErrDuplicateIntent
	}
	r.byID[payment.ID] = payment
	r.byIntent[payment.IntentID] = payment.ID
	return nil
}

// GetByID returns a payment by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, paymentID string) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.byID[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return payment, nil
}

// GetByIntent returns a payment by its processor intent reference.
func (r *MemoryRepo) GetByIntent(ctx context.Context, intentID string) (Payment, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByIntentLocked(intentID)
}

// MarkStatusByIntent applies the status idempotently. A completed payment
// is sticky: late or replayed failure events never downgrade it.
func (r *MemoryRepo) MarkStatusByIntent(ctx context.Context, intentID string, status Status) (Payment, bool, error) {
	if err := ctx.Err(); err != nil {
		return Payment{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, err := r.getByIntentLocked(intentID)
	if err != nil {
		return Payment{}, false, err
	}
	if payment.Status == status || payment.Status == StatusCompleted {
		return payment, false, nil
	}
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	r.byID[payment.ID] = payment
	return payment, true, nil
}

func (r *MemoryRepo) getByIntentLocked(intentID string) (Payment, error) {
	paymentID, ok := r.byIntent[intentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return r.byID[paymentID], nil
}
