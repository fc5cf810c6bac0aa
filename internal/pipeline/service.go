package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dreamdoc-backend/internal/analyzer"
	"dreamdoc-backend/internal/billing"
	"dreamdoc-backend/internal/documents"
	"dreamdoc-backend/internal/extract"
	"dreamdoc-backend/internal/payments"
	"dreamdoc-backend/internal/pricing"
	"dreamdoc-backend/internal/results"
	"dreamdoc-backend/internal/shared/metrics"
	"dreamdoc-backend/internal/shared/storage/object"
	"dreamdoc-backend/internal/shared/telemetry"
	"dreamdoc-backend/internal/shared/util"
	"dreamdoc-backend/internal/tasks"
)

const (
	extractionTimeout = 2 * time.Minute
	analysisTimeout   = 5 * time.Minute
	failWriteTimeout  = 10 * time.Second
)

// Service orchestrates the document lifecycle: upload, background
// extraction, payment reconciliation, and the paid analysis. One
// instance is wired at startup and shared by the handlers.
type Service struct {
	Docs     documents.Repo
	Payments payments.Repo
	Results  results.Repo
	Store    object.ObjectStore
	Billing  billing.Provider
	AI       analyzer.Client
	Pricing  pricing.Calculator
	Tracker  *tasks.Tracker

	Currency       string
	MinCharge      int64
	MaxUploadBytes int64
}

// UploadOutput is what the upload handler returns to the client: the new
// document plus the deposit intent's client secret.
type UploadOutput struct {
	Document     documents.Document
	ClientSecret string
}

// Upload validates and stores the file, records the document, creates
// the deposit payment intent, and schedules extraction.
func (s *Service) Upload(ctx context.Context, originalName, mimeType string, data []byte) (UploadOutput, error) {
	if int64(len(data)) > s.MaxUploadBytes {
		detail := fmt.Sprintf("file size exceeds maximum limit of %dMB", s.MaxUploadBytes>>20)
		return UploadOutput{}, E(KindValidation, detail, nil)
	}
	if len(data) == 0 {
		return UploadOutput{}, E(KindValidation, "empty file", nil)
	}
	safeName, err := util.SanitizeFileName(originalName)
	if err != nil {
		return UploadOutput{}, E(KindValidation, "invalid file name", err)
	}
	if !extract.Supported(mimeType, safeName) {
		return UploadOutput{}, E(KindValidation, "invalid file type, only PDF and DOCX files are allowed", nil)
	}

	hash := util.HashContent(data)
	ext := strings.ToLower(filepath.Ext(safeName))
	fileName := hash + ext
	storageKey := "documents/" + fileName

	if _, err := s.Store.Save(ctx, storageKey, mimeType, bytes.NewReader(data)); err != nil {
		return UploadOutput{}, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UTC()
	doc := documents.Document{
		ID:               uuid.NewString(),
		FileName:         fileName,
		OriginalFilename: safeName,
		MimeType:         mimeType,
		SizeBytes:        int64(len(data)),
		StorageKey:       storageKey,
		Status:           documents.StatusUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Docs.Create(ctx, doc); err != nil {
		return UploadOutput{}, fmt.Errorf("create document: %w", err)
	}

	intent, err := s.Billing.CreateIntent(ctx, s.MinCharge, map[string]string{"document_id": doc.ID})
	if err != nil {
		return UploadOutput{}, E(KindPaymentIntent, "could not create payment intent", err)
	}

	s.Tracker.Go("extract:"+doc.ID, extractionTimeout, func(jobCtx context.Context) {
		s.runExtraction(jobCtx, doc)
	})

	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"size":        doc.SizeBytes,
		"mime":        doc.MimeType,
	})
	return UploadOutput{Document: doc, ClientSecret: intent.ClientSecret}, nil
}

// runExtraction moves uploaded -> extracting -> extracted, pricing the
// analysis from the extracted character count.
func (s *Service) runExtraction(ctx context.Context, doc documents.Document) {
	if err := s.Docs.Transition(ctx, doc.ID, documents.StatusUploaded, documents.StatusExtracting); err != nil {
		if errors.Is(err, documents.ErrConflict) {
			metrics.IncDuplicateTrigger()
			return
		}
		telemetry.Error("extraction.start_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
		return
	}
	metrics.IncExtractionStarted()
	start := time.Now()

	out, err := extract.FromStore(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.OriginalFilename)
	if err != nil {
		s.failDocument(ctx, doc.ID, E(KindExtraction, "text extraction failed", err))
		metrics.IncExtractionFailed()
		return
	}

	cost := s.Pricing.Price(out.CharCount)
	if err := s.Docs.MarkExtracted(ctx, doc.ID, out.CharCount, out.Title, cost); err != nil {
		telemetry.Error("extraction.commit_failed", map[string]any{"document_id": doc.ID, "error": err.Error()})
		return
	}
	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("document.extracted", map[string]any{
		"document_id": doc.ID,
		"chars":       out.CharCount,
		"cost":        cost,
	})
}

// ConfirmPayment verifies the intent with the payment provider, records
// the payment, and triggers the analysis at most once.
func (s *Service) ConfirmPayment(ctx context.Context, documentID, intentID string, opts analyzer.Options) (payments.Payment, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return payments.Payment{}, E(KindNotFound, "document not found", err)
		}
		return payments.Payment{}, err
	}

	intent, err := s.Billing.GetIntent(ctx, intentID)
	if err != nil {
		return payments.Payment{}, E(KindPaymentIntent, "could not retrieve payment intent", err)
	}
	if intent.Status != billing.IntentStatusSucceeded {
		return payments.Payment{}, E(KindPaymentIntent, "payment not successful", nil)
	}

	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return payments.Payment{}, fmt.Errorf("encode analysis options: %w", err)
	}
	now := time.Now().UTC()
	payment := payments.Payment{
		ID:              uuid.NewString(),
		DocumentID:      doc.ID,
		IntentID:        intent.ID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          payments.StatusCompleted,
		AnalysisOptions: optsJSON,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Payments.Create(ctx, payment); err != nil {
		if errors.Is(err, payments.ErrDuplicateIntent) {
			existing, getErr := s.Payments.GetByIntent(ctx, intent.ID)
			if getErr != nil {
				return payments.Payment{}, getErr
			}
			payment = existing
		} else {
			return payments.Payment{}, fmt.Errorf("create payment: %w", err)
		}
	} else {
		metrics.IncPaymentCompleted()
		telemetry.Info("payment.completed", map[string]any{
			"document_id": doc.ID,
			"payment_id":  payment.ID,
			"intent_id":   payment.IntentID,
			"amount":      payment.Amount,
		})
	}

	s.triggerAnalysis(ctx, doc.ID, opts)
	return payment, nil
}

// HandleWebhook verifies the provider signature before touching any
// state, then reconciles the referenced payment.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.Billing.VerifyWebhook(payload, signature)
	if err != nil {
		metrics.IncWebhookRejected()
		return E(KindSignature, "invalid webhook signature", err)
	}

	switch event.Type {
	case billing.EventPaymentSucceeded:
		payment, changed, err := s.Payments.MarkStatusByIntent(ctx, event.IntentID, payments.StatusCompleted)
		if err != nil {
			if errors.Is(err, payments.ErrNotFound) {
				// An intent this service never recorded. Acknowledge
				// so the provider stops retrying.
				telemetry.Warn("webhook.unknown_intent", map[string]any{"intent_id": event.IntentID})
				return nil
			}
			return err
		}
		if changed {
			metrics.IncPaymentCompleted()
		}
		var opts analyzer.Options
		if len(payment.AnalysisOptions) > 0 {
			if err := json.Unmarshal(payment.AnalysisOptions, &opts); err != nil {
				opts = analyzer.DefaultOptions()
			}
		} else {
			opts = analyzer.DefaultOptions()
		}
		s.triggerAnalysis(ctx, payment.DocumentID, opts)
		return nil

	case billing.EventPaymentFailed:
		if _, _, err := s.Payments.MarkStatusByIntent(ctx, event.IntentID, payments.StatusFailed); err != nil {
			if errors.Is(err, payments.ErrNotFound) {
				return nil
			}
			return err
		}
		return nil

	default:
		telemetry.Info("webhook.ignored", map[string]any{"type": event.Type})
		return nil
	}
}

// triggerAnalysis claims the document via extracted -> analyzing. A lost
// claim means another trigger won; that is the expected idempotent path,
// not an error.
func (s *Service) triggerAnalysis(ctx context.Context, documentID string, opts analyzer.Options) {
	if err := s.Docs.Transition(ctx, documentID, documents.StatusExtracted, documents.StatusAnalyzing); err != nil {
		if errors.Is(err, documents.ErrConflict) {
			metrics.IncDuplicateTrigger()
			telemetry.Info("analysis.trigger_skipped", map[string]any{"document_id": documentID})
			return
		}
		telemetry.Error("analysis.trigger_failed", map[string]any{"document_id": documentID, "error": err.Error()})
		return
	}

	s.Tracker.Go("analyze:"+documentID, analysisTimeout, func(jobCtx context.Context) {
		s.runAnalysis(jobCtx, documentID, opts)
	})
}

// runAnalysis reads the extracted text, calls the model, and commits the
// result together with analyzing -> analyzed.
func (s *Service) runAnalysis(ctx context.Context, documentID string, opts analyzer.Options) {
	metrics.IncAnalysisStarted()
	start := time.Now()

	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		// The extracted->analyzing claim is already consumed; leaving the
		// document in analyzing would strand it forever.
		s.failPaidAnalysis(ctx, documentID, E(KindAnalysis, "document unavailable", err))
		return
	}

	text, err := s.readExtractedText(ctx, doc.StorageKey)
	if err != nil {
		s.failPaidAnalysis(ctx, documentID, E(KindAnalysis, "extracted text unavailable", err))
		return
	}

	result, err := s.AI.Analyze(ctx, text, opts)
	if err != nil {
		s.failPaidAnalysis(ctx, documentID, E(KindAnalysis, "analysis failed", err))
		return
	}

	res := results.Result{
		ID:                uuid.NewString(),
		DocumentID:        documentID,
		Summary:           result.Summary,
		CharacterAnalysis: result.CharacterAnalysis,
		PlotAnalysis:      result.PlotAnalysis,
		ThemeAnalysis:     result.ThemeAnalysis,
		ReadabilityScore:  result.ReadabilityScore,
		SentimentScore:    result.SentimentScore,
		StyleConsistency:  result.StyleConsistency,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.Results.CompleteAnalysis(ctx, res); err != nil {
		s.failPaidAnalysis(ctx, documentID, E(KindAnalysis, "could not store analysis result", err))
		return
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("document.analyzed", map[string]any{"document_id": documentID})
}

func (s *Service) readExtractedText(ctx context.Context, storageKey string) (string, error) {
	body, err := s.Store.Open(ctx, storageKey+".extracted.txt")
	if err != nil {
		return "", err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// failPaidAnalysis marks the document failed after payment capture. The
// payment stays completed; the log line is the operational alert.
func (s *Service) failPaidAnalysis(ctx context.Context, documentID string, cause error) {
	metrics.IncAnalysisFailed()
	metrics.IncPaidAnalysisFailed()
	telemetry.Error("analysis.failed_after_payment", map[string]any{
		"document_id": documentID,
		"error":       cause.Error(),
	})
	s.failDocument(ctx, documentID, cause)
}

func (s *Service) failDocument(ctx context.Context, documentID string, cause error) {
	// The job context may already be canceled or past its deadline; the
	// failure record has to land regardless, so write it detached.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	if err := s.Docs.MarkFailed(ctx, documentID, cause.Error()); err != nil {
		telemetry.Error("document.fail_mark_failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return
	}
	telemetry.Warn("document.failed", map[string]any{
		"document_id": documentID,
		"error":       cause.Error(),
	})
}

// GetDocument returns the document's current lifecycle view.
func (s *Service) GetDocument(ctx context.Context, documentID string) (documents.Document, error) {
	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, E(KindNotFound, "document not found", err)
		}
		return documents.Document{}, err
	}
	return doc, nil
}

// GetResult returns the stored analysis; not found until analyzed.
func (s *Service) GetResult(ctx context.Context, documentID string) (results.Result, error) {
	res, err := s.Results.GetByDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			return results.Result{}, E(KindNotFound, "analysis result not found", err)
		}
		return results.Result{}, err
	}
	return res, nil
}

// GetPayment returns a payment by its ID.
func (s *Service) GetPayment(ctx context.Context, paymentID string) (payments.Payment, error) {
	payment, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			return payments.Payment{}, E(KindNotFound, "payment not found", err)
		}
		return payments.Payment{}, err
	}
	return payment, nil
}

// Download streams the original uploaded bytes.
func (s *Service) Download(ctx context.Context, documentID string) (documents.Document, io.ReadCloser, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return documents.Document{}, nil, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return documents.Document{}, nil, E(KindNotFound, "stored file not found", err)
	}
	return doc, body, nil
}
