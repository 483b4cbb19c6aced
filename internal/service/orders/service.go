package orders

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/events"
	"github.com/studioline/showtix/internal/payment"
	"github.com/studioline/showtix/internal/repository"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	"github.com/studioline/showtix/internal/service/notify"
	"github.com/studioline/showtix/internal/uow"
)

type Config struct {
	Currency string
	// PendingTTL bounds how long an unpaid order keeps its seats. Zero
	// disables ExpirePending.
	PendingTTL time.Duration
}

// expireBatch caps the orders cancelled by one ExpirePending call.
const expireBatch = 100

// errSeatsTaken aborts a revival whose seats were resold meanwhile.
var errSeatsTaken = errors.New("seats of the order were taken")

type Service struct {
	store    *postgresrepo.Store
	provider payment.Provider
	notify   *notify.Notifier
	uow      *uow.UoW
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the orders service. A nil provider runs the box office mode:
// every order is paid on creation.
func New(
	store *postgresrepo.Store,
	provider payment.Provider,
	notifier *notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	return &Service{
		store:    store,
		provider: provider,
		notify:   notifier,
		uow:      uow.NewUoW(store),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

type CreateInput struct {
	Token        string
	CustomerName string
	Email        string
	Phone        string
}

// CreateFromReservation converts an active reservation into an order with
// one ticket per seat. The seats become sold and the reservation is closed
// in the same transaction.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: reservation token and customer contact details.
//
// Returns:
//   - *domain.OrderWithTickets: the order, its tickets and the payment client secret if any.
//   - error: ErrReservationNotFound, ErrEmailMismatch, ErrReservationInactive, ErrReservationExpired.
//   - error: ErrSeatsNoLongerHeld if a seat was lost since the hold.
//   - error: ErrPaymentProvider if the payment intent could not be created.
func (s *Service) CreateFromReservation(ctx context.Context, in CreateInput) (*domain.OrderWithTickets, error) {
	const op = "service.orders.CreateFromReservation"

	var out *domain.OrderWithTickets

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		resRepo := s.store.Reservations().With(tx)
		orderRepo := s.store.Orders().With(tx)

		res, err := resRepo.GetByToken(ctx, in.Token, true)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		now := s.now()
		if err := CheckConvertible(res, in.Email, now); err != nil {
			return err
		}

		show, err := s.store.Query().With(tx).GetShow(ctx, res.ShowID)
		if err != nil {
			return err
		}

		seats, err := resRepo.Seats(ctx, res.ID, true)
		if err != nil {
			return err
		}

		if err := CheckSeatsHeld(res.ID, seats); err != nil {
			return err
		}

		order := domain.Order{
			ID:            uuid.New(),
			ShowID:        res.ShowID,
			ReservationID: &res.ID,
			CustomerName:  in.CustomerName,
			CustomerEmail: in.Email,
			CustomerPhone: in.Phone,
			Currency:      s.cfg.Currency,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		tickets := make([]domain.Ticket, 0, len(seats))
		seatIDs := make([]int64, 0, len(seats))
		for _, seat := range seats {
			code, err := NewTicketCode()
			if err != nil {
				return err
			}

			price := seat.Price(show.DefaultPriceCents)
			order.TotalCents += price

			tickets = append(tickets, domain.Ticket{
				ID:         uuid.New(),
				OrderID:    order.ID,
				ShowID:     res.ShowID,
				SeatID:     seat.ID,
				Code:       code,
				PriceCents: price,
				Status:     domain.TicketValid,
				Created:    now,
			})
			seatIDs = append(seatIDs, seat.ID)
		}

		order.Status = InitialStatus(order.TotalCents, s.provider != nil)

		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := orderRepo.CreateTickets(ctx, tickets); err != nil {
			return err
		}

		if err := orderRepo.MarkSeatsSold(ctx, res.ID, seatIDs); err != nil {
			if errors.Is(err, repository.ErrSeatsUnavailable) {
				return ErrSeatsNoLongerHeld
			}
			return err
		}

		if err := resRepo.Deactivate(ctx, res.ID); err != nil {
			return err
		}

		out = &domain.OrderWithTickets{Order: order, Tickets: tickets}

		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, order.ShowID)
			s.notify.Publish(ctx, events.OrderCreated, order.ShowID, orderEvent(order))
			if order.Status == domain.OrderPaid {
				s.notify.Publish(ctx, events.OrderPaid, order.ShowID, orderEvent(order))
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if out.Order.Status != domain.OrderPending {
		return out, nil
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, out.Order.ID, out.Order.TotalCents, out.Order.Currency, out.Order.CustomerEmail)
	if err != nil {
		s.logger.Error("payment intent failed, releasing order",
			slog.String("order_id", out.Order.ID.String()),
			slog.String("err", err.Error()),
		)

		// the request context may already be gone; compensation must still run
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if cerr := s.MarkFailed(cctx, out.Order.ID, domain.OrderFailed); cerr != nil {
			s.logger.Error("order compensation failed",
				slog.String("order_id", out.Order.ID.String()),
				slog.String("err", cerr.Error()),
			)
		}

		return nil, fmt.Errorf("%s:%w: %v", op, ErrPaymentProvider, err)
	}

	if err := s.store.Orders().SetPaymentIntent(ctx, out.Order.ID, intent.ID); err != nil {
		// the webhook carries the order id in metadata and still reconciles
		s.logger.Warn("storing payment intent failed",
			slog.String("order_id", out.Order.ID.String()),
			slog.String("payment_intent_id", intent.ID),
			slog.String("err", err.Error()),
		)
	} else {
		out.Order.PaymentIntentID = &intent.ID
	}
	out.ClientSecret = intent.ClientSecret

	return out, nil
}

// Get retrieves an order along with its tickets.
//
// Returns:
//   - error: orders.ErrOrderNotFound if the order is not found.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "service.orders.Get"

	o, err := s.store.Query().GetOrderWithTickets(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return o, nil
}

// MarkPaid records a successful payment. Paid and refunded orders are left
// as they are. A failed or cancelled order is revived when every one of its
// seats is still free; otherwise the payment is refunded in full and the
// order ends up refunded.
//
// Returns:
//   - error: ErrOrderNotFound if the order does not exist.
//   - error: ErrPaymentProvider if the refund of an unrevivable order failed.
func (s *Service) MarkPaid(ctx context.Context, orderID uuid.UUID, intentID string) error {
	const op = "service.orders.MarkPaid"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		o, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		switch o.Status {
		case domain.OrderPaid, domain.OrderRefunded:
			return nil
		case domain.OrderFailed, domain.OrderCancelled:
			restored, total, err := repo.RestoreSeats(ctx, o.ID)
			if err != nil {
				return err
			}
			if int(restored) < total {
				// rolls back the partial restore
				return errSeatsTaken
			}
		}

		if err := repo.UpdateStatus(ctx, o.ID, domain.OrderPaid,
			domain.OrderPending, domain.OrderFailed, domain.OrderCancelled); err != nil {
			return err
		}

		if intentID != "" && o.PaymentIntentID == nil {
			if err := repo.SetPaymentIntent(ctx, o.ID, intentID); err != nil {
				return err
			}
		}

		o.Status = domain.OrderPaid
		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, o.ShowID)
			s.notify.Publish(ctx, events.OrderPaid, o.ShowID, orderEvent(*o))
		})

		return nil
	})
	if errors.Is(err, errSeatsTaken) {
		err = s.refundLatePayment(ctx, orderID, intentID)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// refundLatePayment gives the money back for a payment that arrived after
// the order's seats were sold to someone else.
func (s *Service) refundLatePayment(ctx context.Context, orderID uuid.UUID, intentID string) error {
	o, err := s.store.Orders().Get(ctx, orderID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if intentID == "" && o.PaymentIntentID != nil {
		intentID = *o.PaymentIntentID
	}

	log := s.logger.With(
		slog.String("order_id", o.ID.String()),
		slog.String("payment_intent_id", intentID),
	)

	if s.provider == nil || intentID == "" {
		log.Error("late payment for a resold order cannot be refunded automatically")
		return nil
	}

	if err := s.provider.Refund(ctx, intentID); err != nil {
		return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	log.Warn("late payment refunded, seats were resold")

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		locked, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		if intentID != "" && locked.PaymentIntentID == nil {
			if err := repo.SetPaymentIntent(ctx, locked.ID, intentID); err != nil {
				return err
			}
		}

		return s.refundLocked(ctx, repo, locked, after)
	})
}

// ExpirePending cancels orders that stayed unpaid for longer than the
// configured pending TTL and returns their seats to sale. The provider
// intent is cancelled first; an order whose intent can no longer be
// cancelled is skipped and left to its webhook.
//
// Returns:
//   - int: the number of orders cancelled.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	const op = "service.orders.ExpirePending"

	if s.cfg.PendingTTL <= 0 {
		return 0, nil
	}

	stale, err := s.store.Orders().ListStalePending(ctx, s.now().Add(-s.cfg.PendingTTL), expireBatch)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	cancelled := 0
	for _, o := range stale {
		if s.provider != nil && o.PaymentIntentID != nil {
			if err := s.provider.CancelPaymentIntent(ctx, *o.PaymentIntentID); err != nil {
				s.logger.Warn("cancelling payment intent failed, order left pending",
					slog.String("order_id", o.ID.String()),
					slog.String("payment_intent_id", *o.PaymentIntentID),
					slog.String("err", err.Error()),
				)
				continue
			}
		}

		if err := s.MarkFailed(ctx, o.ID, domain.OrderCancelled); err != nil {
			return cancelled, fmt.Errorf("%s:%w", op, err)
		}
		cancelled++
	}

	return cancelled, nil
}

// MarkFailed moves a pending order to failed or cancelled, voids its
// tickets and returns its seats to available. Orders in any other status
// are left untouched.
func (s *Service) MarkFailed(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	const op = "service.orders.MarkFailed"

	evType := events.OrderFailed
	switch status {
	case domain.OrderFailed:
	case domain.OrderCancelled:
		evType = events.OrderCancelled
	default:
		return fmt.Errorf("%s:%w", op, ErrInvalidStatus)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		o, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		if o.Status != domain.OrderPending {
			return nil
		}

		if err := repo.UpdateStatus(ctx, o.ID, status, domain.OrderPending); err != nil {
			return err
		}

		if _, err := repo.ReleaseSeats(ctx, o.ID); err != nil {
			return err
		}

		o.Status = status
		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, o.ShowID)
			s.notify.Publish(ctx, evType, o.ShowID, orderEvent(*o))
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// MarkRefundedByIntent records a refund reported by the provider.
//
// Returns:
//   - error: orders.ErrOrderNotFound if no order carries the payment intent.
func (s *Service) MarkRefundedByIntent(ctx context.Context, intentID string) error {
	const op = "service.orders.MarkRefundedByIntent"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		o, err := repo.GetByPaymentIntent(ctx, intentID, true)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		return s.refundLocked(ctx, repo, o, after)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Refund refunds a paid order through the provider, then voids its tickets
// and returns the seats to sale. Orders without a provider payment are
// refunded locally.
//
// Returns:
//   - error: ErrOrderNotFound, ErrNotRefundable, ErrPaymentProvider.
func (s *Service) Refund(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "service.orders.Refund"

	o, err := s.store.Orders().Get(ctx, orderID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if o.Status != domain.OrderPaid {
		return nil, fmt.Errorf("%s:%w", op, ErrNotRefundable)
	}

	if s.provider != nil && o.PaymentIntentID != nil {
		if err := s.provider.Refund(ctx, *o.PaymentIntentID); err != nil {
			return nil, fmt.Errorf("%s:%w: %v", op, ErrPaymentProvider, err)
		}
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		locked, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		return s.refundLocked(ctx, repo, locked, after)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.Get(ctx, orderID)
}

func (s *Service) refundLocked(
	ctx context.Context,
	repo *postgresrepo.OrderRepo,
	o *domain.Order,
	after func(uow.AfterCommit),
) error {
	if o.Status == domain.OrderRefunded {
		return nil
	}

	if err := repo.UpdateStatus(ctx, o.ID, domain.OrderRefunded,
		domain.OrderPaid, domain.OrderPending, domain.OrderFailed, domain.OrderCancelled); err != nil {
		return err
	}

	// no-op for orders whose seats were already released
	if _, err := repo.ReleaseSeats(ctx, o.ID); err != nil {
		return err
	}

	o.Status = domain.OrderRefunded
	after(func(ctx context.Context) {
		s.notify.ShowChanged(ctx, o.ShowID)
		s.notify.Publish(ctx, events.OrderRefunded, o.ShowID, orderEvent(*o))
	})

	return nil
}

func (s *Service) lockOrder(ctx context.Context, repo *postgresrepo.OrderRepo, id uuid.UUID) (*domain.Order, error) {
	o, err := repo.Get(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return o, nil
}

// CheckConvertible decides whether a reservation may become an order. The
// email check only applies when the reservation was made with an email.
func CheckConvertible(res *domain.Reservation, email string, now time.Time) error {
	if res.Email != "" && !strings.EqualFold(strings.TrimSpace(res.Email), strings.TrimSpace(email)) {
		return ErrEmailMismatch
	}

	if !res.IsActive {
		return ErrReservationInactive
	}

	if res.Expired(now) {
		return ErrReservationExpired
	}

	return nil
}

// CheckSeatsHeld requires every seat to still be reserved by the reservation.
func CheckSeatsHeld(reservationID uuid.UUID, seats []domain.Seat) error {
	if len(seats) == 0 {
		return ErrSeatsNoLongerHeld
	}

	for _, s := range seats {
		if s.Status != domain.SeatReserved || s.ReservedBy == nil || *s.ReservedBy != reservationID {
			return ErrSeatsNoLongerHeld
		}
	}

	return nil
}

// InitialStatus is paid for free orders and in box office mode, pending
// otherwise.
func InitialStatus(totalCents int, paymentsEnabled bool) domain.OrderStatus {
	if totalCents == 0 || !paymentsEnabled {
		return domain.OrderPaid
	}

	return domain.OrderPending
}

var ticketEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewTicketCode returns a random code of the form XXXXX-XXXXX.
func NewTicketCode() (string, error) {
	b := make([]byte, 7)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	s := ticketEncoding.EncodeToString(b)

	return s[:5] + "-" + s[5:10], nil
}

func orderEvent(o domain.Order) map[string]any {
	return map[string]any{
		"order_id":    o.ID,
		"status":      o.Status,
		"total_cents": o.TotalCents,
		"currency":    o.Currency,
	}
}
