package pipeline

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dreamdoc-backend/internal/analyzer"
	"dreamdoc-backend/internal/documents"
	"dreamdoc-backend/internal/payments"
	"dreamdoc-backend/internal/results"
	"dreamdoc-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the pipeline service.
type Handler struct {
	Svc            *Service
	PublishableKey string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, publishableKey string) *Handler {
	return &Handler{Svc: svc, PublishableKey: publishableKey}
}

// RegisterRoutes attaches document and payment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents/:id", h.getDocument)
	rg.GET("/documents/:id/result", h.getResult)
	rg.GET("/documents/:id/download", h.download)

	rg.POST("/payments/process/:id", h.confirmPayment)
	rg.GET("/payments/status/:id", h.getPaymentStatus)
	rg.POST("/payments/webhook", h.webhook)
}

// DocumentResponse is the lifecycle view returned for a document.
type DocumentResponse struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	Status       string  `json:"status"`
	Title        *string `json:"title,omitempty"`
	CharCount    *int    `json:"charCount,omitempty"`
	AnalysisCost *int64  `json:"analysisCost,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// UploadResponse adds the deposit intent details the client needs to
// collect the payment.
type UploadResponse struct {
	DocumentResponse
	ClientSecret   string `json:"clientSecret"`
	PublishableKey string `json:"publishableKey"`
}

// PaymentResponse is returned by the payment endpoints.
type PaymentResponse struct {
	PaymentID  string `json:"paymentId"`
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"createdAt"`
	Message    string `json:"message,omitempty"`
}

// ResultResponse is the stored analysis.
type ResultResponse struct {
	DocumentID        string   `json:"documentId"`
	Summary           string   `json:"summary"`
	CharacterAnalysis *string  `json:"characterAnalysis,omitempty"`
	PlotAnalysis      *string  `json:"plotAnalysis,omitempty"`
	ThemeAnalysis     *string  `json:"themeAnalysis,omitempty"`
	ReadabilityScore  *float64 `json:"readabilityScore,omitempty"`
	SentimentScore    *float64 `json:"sentimentScore,omitempty"`
	StyleConsistency  *string  `json:"styleConsistency,omitempty"`
	CreatedAt         string   `json:"createdAt"`
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file field is required", nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.Svc.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}

	out, err := h.Svc.Upload(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		h.respondError(c, err, "failed to upload document")
		return
	}

	respond.JSON(c, http.StatusCreated, UploadResponse{
		DocumentResponse: toDocumentResponse(out.Document),
		ClientSecret:     out.ClientSecret,
		PublishableKey:   h.PublishableKey,
	})
}

func (h *Handler) getDocument(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, err := h.Svc.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		h.respondError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toDocumentResponse(doc))
}

func (h *Handler) getResult(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	res, err := h.Svc.GetResult(c.Request.Context(), documentID)
	if err != nil {
		h.respondError(c, err, "failed to fetch analysis result")
		return
	}
	respond.OK(c, toResultResponse(res))
}

func (h *Handler) download(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, body, err := h.Svc.Download(c.Request.Context(), documentID)
	if err != nil {
		h.respondError(c, err, "failed to download document")
		return
	}
	defer body.Close()

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalFilename))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}

type confirmPaymentRequest struct {
	PaymentIntentID string           `json:"paymentIntentId" binding:"required"`
	AnalysisOptions analyzer.Options `json:"analysisOptions"`
}

func (h *Handler) confirmPayment(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "paymentIntentId is required", nil)
		return
	}

	payment, err := h.Svc.ConfirmPayment(c.Request.Context(), documentID, req.PaymentIntentID, req.AnalysisOptions)
	if err != nil {
		h.respondError(c, err, "failed to process payment")
		return
	}

	resp := toPaymentResponse(payment)
	resp.Message = "Payment processed successfully. Analysis started."
	respond.OK(c, resp)
}

func (h *Handler) getPaymentStatus(c *gin.Context) {
	paymentID := c.Param("id")
	if paymentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "payment id is required", nil)
		return
	}

	payment, err := h.Svc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.respondError(c, err, "failed to fetch payment")
		return
	}
	respond.OK(c, toPaymentResponse(payment))
}

func (h *Handler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read payload", nil)
		return
	}

	if err := h.Svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.respondError(c, err, "webhook processing failed")
		return
	}
	respond.OK(c, gin.H{"status": "success"})
}

// respondError maps pipeline error kinds to HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var pe *Error
	if !errors.As(err, &pe) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
		return
	}
	switch pe.Kind {
	case KindValidation:
		respond.Error(c, http.StatusBadRequest, "validation_error", pe.Detail, nil)
	case KindNotFound:
		respond.Error(c, http.StatusNotFound, "not_found", pe.Detail, nil)
	case KindPaymentIntent:
		respond.Error(c, http.StatusBadRequest, "payment_error", pe.Detail, nil)
	case KindSignature:
		respond.Error(c, http.StatusBadRequest, "invalid_signature", pe.Detail, nil)
	case KindExtraction, KindAnalysis:
		respond.Error(c, http.StatusBadGateway, string(pe.Kind)+"_error", pe.Detail, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func toDocumentResponse(doc documents.Document) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		Filename:     doc.OriginalFilename,
		Status:       string(doc.Status),
		Title:        doc.Title,
		CharCount:    doc.CharCount,
		AnalysisCost: doc.AnalysisCost,
		ErrorMessage: doc.ErrorMessage,
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPaymentResponse(payment payments.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:  payment.ID,
		DocumentID: payment.DocumentID,
		Status:     string(payment.Status),
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		CreatedAt:  payment.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toResultResponse(res results.Result) ResultResponse {
	return ResultResponse{
		DocumentID:        res.DocumentID,
		Summary:           res.Summary,
		CharacterAnalysis: res.CharacterAnalysis,
		PlotAnalysis:      res.PlotAnalysis,
		ThemeAnalysis:     res.ThemeAnalysis,
		ReadabilityScore:  res.ReadabilityScore,
		SentimentScore:    res.SentimentScore,
		StyleConsistency:  res.StyleConsistency,
		CreatedAt:         res.CreatedAt.UTC().Format(time.RFC3339),
	}
}
