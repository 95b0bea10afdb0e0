package services

import (
	"bytes"
	"io"
	"math"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

type StripeService struct {
	SecretKey  string
	WebhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{SecretKey: secretKey, WebhookKey: webhookKey}
}

// CreatePaymentIntent creates a PaymentIntent for the given amount in major
// currency units. The metadata travels back to us on every webhook delivery
// and must include the transaction id.
func (s *StripeService) CreatePaymentIntent(amount float64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return paymentintent.New(params)
}

// ParseWebhook verifies the Stripe-Signature header against the raw body and
// returns the decoded event. Verification failure means the request never
// reaches event processing.
func (s *StripeService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookKey)
}
