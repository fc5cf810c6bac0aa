package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"dreamdoc-backend/internal/analyzer"
	"dreamdoc-backend/internal/billing"
)

func newTestRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	router := gin.New()
	h := NewHandler(env.svc, "pk_test_123")
	h.RegisterRoutes(router.Group("/api/v1"))
	return router, env
}

func multipartUpload(t *testing.T, fileName string, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	router, env := newTestRouter(t)
	body, contentType := multipartUpload(t, "story.docx", docxMime, buildDocx(t, "My Story", "Once upon a time."))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Status != "uploaded" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.ClientSecret != "pi_created_secret" || resp.PublishableKey != "pk_test_123" {
		t.Fatalf("intent fields = %q %q", resp.ClientSecret, resp.PublishableKey)
	}
	env.join(t)
}

func TestUploadEndpointMissingFile(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetDocumentEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestConfirmPaymentEndpoint(t *testing.T) {
	router, env := newTestRouter(t)
	env.seedExtracted(t, "doc-1")
	env.provider.intents["pi_1"] = billing.Intent{ID: "pi_1", Amount: 350, Currency: "cny", Status: billing.IntentStatusSucceeded}

	body := bytes.NewBufferString(`{"paymentIntentId":"pi_1","analysisOptions":{"character_analysis":true}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/process/doc-1", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PaymentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "completed" || resp.DocumentID != "doc-1" {
		t.Fatalf("response = %+v", resp)
	}
	env.join(t)
}

func TestConfirmPaymentEndpointMissingIntent(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/process/doc-1", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWebhookEndpointBadSignature(t *testing.T) {
	router, _ := newTestRouter(t)
	payload := bytes.NewBufferString(`{"type":"payment_intent.succeeded","intent_id":"pi_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", payload)
	req.Header.Set("Stripe-Signature", "forged")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestResultEndpointPendingThenReady(t *testing.T) {
	router, env := newTestRouter(t)
	env.seedExtracted(t, "doc-1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/result", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status before analysis = %d, want 404", w.Code)
	}

	env.provider.intents["pi_1"] = billing.Intent{ID: "pi_1", Amount: 350, Currency: "cny", Status: billing.IntentStatusSucceeded}
	if _, err := env.svc.ConfirmPayment(context.Background(), "doc-1", "pi_1", analyzer.DefaultOptions()); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	env.join(t)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/result", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status after analysis = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary == "" {
		t.Fatal("summary missing from result response")
	}
}

func TestDownloadEndpoint(t *testing.T) {
	router, env := newTestRouter(t)
	env.seedExtracted(t, "doc-1")
	key := "documents/doc-1.docx"
	if _, err := env.svc.Store.Save(context.Background(), key, docxMime, bytes.NewReader([]byte("raw bytes"))); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "raw bytes" {
		t.Fatalf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got == "" {
		t.Fatal("missing Content-Disposition header")
	}
}
