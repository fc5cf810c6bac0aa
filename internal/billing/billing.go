package billing

import (
	"context"
	"errors"
)

// Intent mirrors the provider-side payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// Provider intent statuses this service cares about.
const (
	IntentStatusSucceeded = "succeeded"
)

// Webhook event types this service reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Event is a signature-verified webhook notification.
type Event struct {
	Type     string
	IntentID string
}

// ErrSignature marks a webhook payload whose signature did not verify.
var ErrSignature = errors.New("invalid webhook signature")

// Provider abstracts the payment processor.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, error)
	VerifyWebhook(payload []byte, signature string) (Event, error)
}
