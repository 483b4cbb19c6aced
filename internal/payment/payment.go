package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// Intent is the part of a provider payment intent the buyer needs to pay.
type Intent struct {
	ID           string
	ClientSecret string
}

type Provider interface {
	CreatePaymentIntent(
		ctx context.Context,
		orderID uuid.UUID,
		amountCents int,
		currency, email string,
	) (*Intent, error)
	Refund(ctx context.Context, intentID string) error
	// CancelPaymentIntent fails when the intent has already succeeded.
	CancelPaymentIntent(ctx context.Context, intentID string) error
}

type EventKind string

const (
	KindPaymentSucceeded EventKind = "payment_succeeded"
	KindPaymentFailed    EventKind = "payment_failed"
	KindPaymentCanceled  EventKind = "payment_canceled"
	KindChargeRefunded   EventKind = "charge_refunded"
	KindOther            EventKind = "other"
)

// WebhookEvent is a verified provider event reduced to what reconciliation
// needs. OrderID is empty when the provider object carries no order
// metadata.
type WebhookEvent struct {
	ID              string
	Type            string
	Kind            EventKind
	PaymentIntentID string
	OrderID         string
}
