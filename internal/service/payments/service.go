package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/payment"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/orders"
)

var ErrDisabled = errors.New("payments are not configured")

type Verifier interface {
	Parse(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// Reconciler applies provider outcomes to orders.
type Reconciler interface {
	MarkPaid(ctx context.Context, orderID uuid.UUID, intentID string) error
	MarkFailed(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error
	MarkRefundedByIntent(ctx context.Context, intentID string) error
}

type Dedup interface {
	SeenOnce(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Service struct {
	verifier Verifier
	orders   Reconciler
	dedup    Dedup
	logger   *slog.Logger
}

// New builds the webhook service. A nil verifier disables webhooks.
func New(verifier Verifier, orders Reconciler, dedup Dedup, logger *slog.Logger) *Service {
	return &Service{
		verifier: verifier,
		orders:   orders,
		dedup:    dedup,
		logger:   logger,
	}
}

// HandleWebhook verifies a provider delivery and reconciles the order it
// refers to. Deliveries are processed at most once per event id; when
// processing fails the event is forgotten so the provider's retry is
// handled again.
//
// Returns:
//   - error: payment.ErrInvalidSignature or payment.ErrMalformedEvent for bad deliveries.
//   - error: any reconciliation error, so the provider retries.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "service.payments.HandleWebhook"

	if s.verifier == nil {
		return fmt.Errorf("%s:%w", op, ErrDisabled)
	}

	ev, err := s.verifier.Parse(payload, signature)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	log := s.logger.With(
		slog.String("event_id", ev.ID),
		slog.String("event_type", ev.Type),
	)

	if ev.Kind == payment.KindOther {
		log.Debug("webhook event ignored")
		return nil
	}

	key := redisrepo.KeyWebhookEvent(ev.ID)
	if s.dedup != nil {
		seen, err := s.dedup.SeenOnce(ctx, key)
		if err != nil {
			// without dedup the handlers are still idempotent
			log.Warn("webhook dedup unavailable", slog.String("err", err.Error()))
		} else if seen {
			log.Info("duplicate webhook event")
			return nil
		}
	}

	if err := s.dispatch(ctx, log, ev); err != nil {
		if s.dedup != nil {
			_ = s.dedup.Release(context.WithoutCancel(ctx), key)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) dispatch(ctx context.Context, log *slog.Logger, ev *payment.WebhookEvent) error {
	if ev.Kind == payment.KindChargeRefunded {
		if ev.PaymentIntentID == "" {
			log.Warn("refund without payment intent")
			return nil
		}

		err := s.orders.MarkRefundedByIntent(ctx, ev.PaymentIntentID)
		if errors.Is(err, orders.ErrOrderNotFound) {
			log.Warn("refund for unknown payment intent", slog.String("payment_intent_id", ev.PaymentIntentID))
			return nil
		}
		return err
	}

	orderID, err := uuid.Parse(ev.OrderID)
	if err != nil {
		log.Warn("webhook event without order id", slog.String("order_id", ev.OrderID))
		return nil
	}

	switch ev.Kind {
	case payment.KindPaymentSucceeded:
		err = s.orders.MarkPaid(ctx, orderID, ev.PaymentIntentID)
	case payment.KindPaymentFailed:
		err = s.orders.MarkFailed(ctx, orderID, domain.OrderFailed)
	case payment.KindPaymentCanceled:
		err = s.orders.MarkFailed(ctx, orderID, domain.OrderCancelled)
	}

	if errors.Is(err, orders.ErrOrderNotFound) {
		log.Warn("webhook for unknown order", slog.String("order_id", orderID.String()))
		return nil
	}

	return err
}
