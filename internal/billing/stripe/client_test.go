package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"dreamdoc-backend/internal/billing"
)

const testSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookValidSignature(t *testing.T) {
	c := New(Options{WebhookSecret: testSecret, Currency: "cny", MinCharge: 350})
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	event, err := c.VerifyWebhook(payload, signPayload(payload, testSecret, time.Now()))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if event.Type != billing.EventPaymentSucceeded {
		t.Fatalf("type = %q", event.Type)
	}
	if event.IntentID != "pi_123" {
		t.Fatalf("intent = %q", event.IntentID)
	}
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	c := New(Options{WebhookSecret: testSecret})
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	_, err := c.VerifyWebhook(payload, signPayload(payload, "whsec_other", time.Now()))
	if !errors.Is(err, billing.ErrSignature) {
		t.Fatalf("err = %v, want ErrSignature", err)
	}
}

func TestVerifyWebhookStaleTimestamp(t *testing.T) {
	c := New(Options{WebhookSecret: testSecret})
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	_, err := c.VerifyWebhook(payload, signPayload(payload, testSecret, time.Now().Add(-time.Hour)))
	if !errors.Is(err, billing.ErrSignature) {
		t.Fatalf("err = %v, want ErrSignature", err)
	}
}
