// Package events publishes domain events about reservations, orders and
// tickets to an external broker. Publishing is best effort and never
// affects the outcome of the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ReservationCreated  = "reservation.created"
	ReservationReleased = "reservation.released"
	ReservationsExpired = "reservation.expired"
	OrderCreated        = "order.created"
	OrderPaid           = "order.paid"
	OrderFailed         = "order.failed"
	OrderCancelled      = "order.cancelled"
	OrderRefunded       = "order.refunded"
	TicketCheckedIn     = "ticket.checked_in"
)

type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ShowID     int64           `json:"show_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(typ string, showID int64, data any) (Envelope, error) {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		ShowID:     showID,
		OccurredAt: time.Now().UTC(),
	}

	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, err
		}
		env.Data = b
	}

	return env, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
