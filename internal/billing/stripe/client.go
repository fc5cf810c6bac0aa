package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"dreamdoc-backend/internal/billing"
)

// Client implements billing.Provider against the Stripe API.
type Client struct {
	api           *client.API
	webhookSecret string
	currency      string
	minCharge     int64
}

var _ billing.Provider = (*Client)(nil)

// Options configures the Stripe client.
type Options struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	MinCharge     int64
}

func New(opts Options) *Client {
	api := &client.API{}
	api.Init(opts.SecretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: opts.WebhookSecret,
		currency:      opts.Currency,
		minCharge:     opts.MinCharge,
	}
}

// CreateIntent creates a payment intent, flooring the amount at the
// configured minimum charge.
func (c *Client) CreateIntent(_ context.Context, amount int64, metadata map[string]string) (billing.Intent, error) {
	if amount < c.minCharge {
		amount = c.minCharge
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(c.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("always"),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return billing.Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

// GetIntent retrieves a payment intent by ID.
func (c *Client) GetIntent(_ context.Context, intentID string) (billing.Intent, error) {
	pi, err := c.api.PaymentIntents.Get(intentID, nil)
	if err != nil {
		return billing.Intent{}, fmt.Errorf("get payment intent %s: %w", intentID, err)
	}
	return fromStripeIntent(pi), nil
}

// VerifyWebhook checks the signature and extracts the intent ID for
// payment events.
func (c *Client) VerifyWebhook(payload []byte, signature string) (billing.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return billing.Event{}, fmt.Errorf("%w: %v", billing.ErrSignature, err)
	}
	out := billing.Event{Type: string(event.Type)}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return billing.Event{}, fmt.Errorf("webhook event object: %w", err)
	}
	out.IntentID = obj.ID
	return out, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) billing.Intent {
	return billing.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}
