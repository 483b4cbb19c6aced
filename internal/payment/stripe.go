package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// MetadataOrderID is the payment intent metadata key linking it to an order.
const MetadataOrderID = "order_id"

// StripeProvider talks to Stripe using the package level key set at startup.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreatePaymentIntent(
	ctx context.Context,
	orderID uuid.UUID,
	amountCents int,
	currency, email string,
) (*Intent, error) {
	const op = "payment.StripeProvider.CreatePaymentIntent"

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amountCents)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata(MetadataOrderID, orderID.String())
	// retries after a timeout must not create a second intent for the order
	params.SetIdempotencyKey("order-" + orderID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProvider) Refund(ctx context.Context, intentID string) error {
	const op = "payment.StripeProvider.Refund"

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + intentID)

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *StripeProvider) CancelPaymentIntent(ctx context.Context, intentID string) error {
	const op = "payment.StripeProvider.CancelPaymentIntent"

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String("abandoned"),
	}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// StripeWebhook verifies and decodes Stripe webhook deliveries.
type StripeWebhook struct {
	secret string
}

func NewStripeWebhook(secret string) *StripeWebhook {
	return &StripeWebhook{secret: secret}
}

func (w *StripeWebhook) Parse(payload []byte, signature string) (*WebhookEvent, error) {
	const op = "payment.StripeWebhook.Parse"

	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %v", op, ErrInvalidSignature, err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: KindOther,
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%s:%w: %v", op, ErrMalformedEvent, err)
		}

		out.PaymentIntentID = pi.ID
		out.OrderID = pi.Metadata[MetadataOrderID]

		switch event.Type {
		case stripe.EventTypePaymentIntentSucceeded:
			out.Kind = KindPaymentSucceeded
		case stripe.EventTypePaymentIntentPaymentFailed:
			out.Kind = KindPaymentFailed
		default:
			out.Kind = KindPaymentCanceled
		}
	case stripe.EventTypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%s:%w: %v", op, ErrMalformedEvent, err)
		}

		out.Kind = KindChargeRefunded
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
		out.OrderID = ch.Metadata[MetadataOrderID]
	}

	return out, nil
}
