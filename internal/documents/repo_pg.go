package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    file_name,
    original_filename,
    mime_type,
    size_bytes,
    storage_key,
    title,
    char_count,
    analysis_cost,
    status,
    error_message,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.FileName,
		doc.OriginalFilename,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.Title,
		doc.CharCount,
		doc.AnalysisCost,
		string(doc.Status),
		doc.ErrorMessage,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, file_name, original_filename, mime_type, size_bytes, storage_key,
       title, char_count, analysis_cost, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, documentID))
}

// Transition flips from -> to if the stored status still matches from.
func (r *PGRepo) Transition(ctx context.Context, documentID string, from, to Status) error {
	if from.Terminal() {
		return ErrConflict
	}
	const query = `
UPDATE documents
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`
	res, err := r.DB.ExecContext(ctx, query, string(to), time.Now().UTC(), documentID, string(from))
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, documentID)
}

// MarkExtracted commits extraction outputs with extracting -> extracted.
func (r *PGRepo) MarkExtracted(ctx context.Context, documentID string, charCount int, title string, cost int64) error {
	const query = `
UPDATE documents
SET status = $1, char_count = $2, title = $3, analysis_cost = $4, updated_at = $5
WHERE id = $6 AND status = $7`
	res, err := r.DB.ExecContext(ctx, query,
		string(StatusExtracted), charCount, title, cost, time.Now().UTC(),
		documentID, string(StatusExtracting),
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, documentID)
}

// MarkFailed records the failure message; only the busy states can fail.
func (r *PGRepo) MarkFailed(ctx context.Context, documentID string, errorMessage string) error {
	const query = `
UPDATE documents
SET status = $1, error_message = $2, updated_at = $3
WHERE id = $4 AND status IN ($5, $6)`
	res, err := r.DB.ExecContext(ctx, query,
		string(StatusFailed), errorMessage, time.Now().UTC(),
		documentID, string(StatusExtracting), string(StatusAnalyzing),
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, documentID)
}

func (r *PGRepo) checkAffected(ctx context.Context, res sql.Result, documentID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// Distinguish a lost race from a missing row.
	var one int
	err = r.DB.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = $1`, documentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var title sql.NullString
	var charCount sql.NullInt64
	var cost sql.NullInt64
	var status string
	var errMsg sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&doc.OriginalFilename,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&title,
		&charCount,
		&cost,
		&status,
		&errMsg,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Status = Status(status)
	if title.Valid {
		doc.Title = &title.String
	}
	if charCount.Valid {
		count := int(charCount.Int64)
		doc.CharCount = &count
	}
	if cost.Valid {
		doc.AnalysisCost = &cost.Int64
	}
	if errMsg.Valid {
		doc.ErrorMessage = &errMsg.String
	}
	return doc, nil
}
