package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"dreamdoc-backend/internal/documents"
)

func TestPGCompleteAnalysisCommits(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO analysis_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := &PGRepo{DB: db}
	res := Result{
		ID:         "res-1",
		DocumentID: "doc-1",
		Summary:    "a summary",
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.CompleteAnalysis(context.Background(), res); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGCompleteAnalysisRollsBackOnLostRace(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO analysis_results`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := &PGRepo{DB: db}
	err = repo.CompleteAnalysis(context.Background(), Result{ID: "res-1", DocumentID: "doc-1", Summary: "s"})
	if !errors.Is(err, documents.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGGetByDocumentScansOptionals(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "summary", "character_analysis", "plot_analysis",
		"theme_analysis", "readability_score", "sentiment_score", "style_consistency", "created_at",
	}).AddRow("res-1", "doc-1", "a summary", "characters", nil, nil, 7.5, nil, nil, now)
	mock.ExpectQuery(`SELECT .+ FROM analysis_results`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	got, err := repo.GetByDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByDocument: %v", err)
	}
	if got.CharacterAnalysis == nil || *got.CharacterAnalysis != "characters" {
		t.Fatalf("character analysis = %v", got.CharacterAnalysis)
	}
	if got.PlotAnalysis != nil {
		t.Fatalf("plot analysis should be nil")
	}
	if got.ReadabilityScore == nil || *got.ReadabilityScore != 7.5 {
		t.Fatalf("readability = %v", got.ReadabilityScore)
	}
}
