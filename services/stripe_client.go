package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"
)

// GatewayIntent is the gateway-neutral view of an in-progress charge.
type GatewayIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Raw          []byte
}

// GatewayRefund is the gateway-neutral view of a refund.
type GatewayRefund struct {
	ID     string
	Status string
	Raw    []byte
}

// IntentSucceeded is the gateway status that allows a payment to complete.
const IntentSucceeded = "succeeded"

// PaymentGateway abstracts the external payment provider so the payment flow
// can be exercised without network calls.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, description string, metadata map[string]string) (*GatewayIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error)
	CreateRefund(ctx context.Context, intentID string, amountCents int64, reason string, metadata map[string]string) (*GatewayRefund, error)
}

// StripeService implements PaymentGateway against Stripe and verifies webhook
// signatures.
type StripeService struct {
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{webhookSecret: webhookSecret}
}

func (s *StripeService) CreateIntent(ctx context.Context, amountCents int64, currency, description string, metadata map[string]string) (*GatewayIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return toGatewayIntent(pi), nil
}

func (s *StripeService) RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return toGatewayIntent(pi), nil
}

func (s *StripeService) CreateRefund(ctx context.Context, intentID string, amountCents int64, reason string, metadata map[string]string) (*GatewayRefund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amountCents),
	}
	params.Context = ctx
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(r)
	return &GatewayRefund{ID: r.ID, Status: string(r.Status), Raw: raw}, nil
}

// VerifyWebhook checks the signature header against the shared secret before
// trusting the payload.
func (s *StripeService) VerifyWebhook(payload []byte, r *http.Request) (stripe.Event, error) {
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

func toGatewayIntent(pi *stripe.PaymentIntent) *GatewayIntent {
	raw, _ := json.Marshal(pi)
	return &GatewayIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Raw:          raw,
	}
}
