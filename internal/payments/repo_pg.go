package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Create inserts a new payment; the unique index on intent_id enforces one
// row per processor intent.
func (r *PGRepo) Create(ctx context.Context, payment Payment) error {
	const query = `
INSERT INTO payments (
    id, document_id, intent_id, amount, currency, status, analysis_options, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var options any
	if len(payment.AnalysisOptions) > 0 {
		options = []byte(payment.AnalysisOptions)
	}
	_, err := r.DB.ExecContext(ctx, query,
		payment.ID,
		payment.DocumentID,
		payment.IntentID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		options,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateIntent
	}
	return err
}

// GetByID fetches a payment by its ID.
func (r *PGRepo) GetByID(ctx context.Context, paymentID string) (Payment, error) {
	const query = selectColumns + ` WHERE id = $1`
	return scanPayment(r.DB.QueryRowContext(ctx, query, paymentID))
}

// GetByIntent fetches a payment by its processor intent reference.
func (r *PGRepo) GetByIntent(ctx context.Context, intentID string) (Payment, error) {
	const query = selectColumns + ` WHERE intent_id = $1`
	return scanPayment(r.DB.QueryRowContext(ctx, query, intentID))
}

// MarkStatusByIntent applies the status idempotently; a repeat application
// leaves the row untouched and reports changed=false. A completed payment
// is sticky: late or replayed failure events never downgrade it.
func (r *PGRepo) MarkStatusByIntent(ctx context.Context, intentID string, status Status) (Payment, bool, error) {
	const query = `
UPDATE payments
SET status = $1, updated_at = $2
WHERE intent_id = $3 AND status <> $1 AND status <> $4`
	res, err := r.DB.ExecContext(ctx, query, string(status), time.Now().UTC(), intentID, string(StatusCompleted))
	if err != nil {
		return Payment{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Payment{}, false, err
	}
	payment, err := r.GetByIntent(ctx, intentID)
	if err != nil {
		return Payment{}, false, err
	}
	return payment, affected > 0, nil
}

const selectColumns = `
SELECT id, document_id, intent_id, amount, currency, status, analysis_options, created_at, updated_at
FROM payments`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var payment Payment
	var status string
	var options []byte
	err := row.Scan(
		&payment.ID,
		&payment.DocumentID,
		&payment.IntentID,
		&payment.Amount,
		&payment.Currency,
		&status,
		&options,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	payment.Status = Status(status)
	if len(options) > 0 {
		payment.AnalysisOptions = options
	}
	return payment, nil
}
