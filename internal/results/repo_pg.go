package results

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dreamdoc-backend/internal/documents"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// CompleteAnalysis inserts the result and flips the document
// analyzing -> analyzed inside one transaction.
func (r *PGRepo) CompleteAnalysis(ctx context.Context, res Result) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insert = `
INSERT INTO analysis_results (
    id,
    document_id,
    summary,
    character_analysis,
    plot_analysis,
    theme_analysis,
    readability_score,
    sentiment_score,
    style_consistency,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := tx.ExecContext(ctx, insert,
		res.ID,
		res.DocumentID,
		res.Summary,
		res.CharacterAnalysis,
		res.PlotAnalysis,
		res.ThemeAnalysis,
		res.ReadabilityScore,
		res.SentimentScore,
		res.StyleConsistency,
		res.CreatedAt,
	); err != nil {
		return err
	}

	const flip = `
UPDATE documents
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`
	out, err := tx.ExecContext(ctx, flip,
		string(documents.StatusAnalyzed), time.Now().UTC(),
		res.DocumentID, string(documents.StatusAnalyzing),
	)
	if err != nil {
		return err
	}
	affected, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return documents.ErrConflict
	}
	return tx.Commit()
}

// GetByDocument fetches the stored result for a document.
func (r *PGRepo) GetByDocument(ctx context.Context, documentID string) (Result, error) {
	const query = `
SELECT id, document_id, summary, character_analysis, plot_analysis, theme_analysis,
       readability_score, sentiment_score, style_consistency, created_at
FROM analysis_results
WHERE document_id = $1`

	var res Result
	var characters, plot, themes, style sql.NullString
	var readability, sentiment sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&res.ID,
		&res.DocumentID,
		&res.Summary,
		&characters,
		&plot,
		&themes,
		&readability,
		&sentiment,
		&style,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	if characters.Valid {
		res.CharacterAnalysis = &characters.String
	}
	if plot.Valid {
		res.PlotAnalysis = &plot.String
	}
	if themes.Valid {
		res.ThemeAnalysis = &themes.String
	}
	if readability.Valid {
		res.ReadabilityScore = &readability.Float64
	}
	if sentiment.Valid {
		res.SentimentScore = &sentiment.Float64
	}
	if style.Valid {
		res.StyleConsistency = &style.String
	}
	return res, nil
}
