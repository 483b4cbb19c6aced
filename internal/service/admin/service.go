package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/events"
	"github.com/studioline/showtix/internal/repository"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	"github.com/studioline/showtix/internal/service/notify"
	"github.com/studioline/showtix/internal/uow"
)

type Service struct {
	store  *postgresrepo.Store
	notify *notify.Notifier
	uow    *uow.UoW
	now    func() time.Time
}

func New(store *postgresrepo.Store, notifier *notify.Notifier) *Service {
	return &Service{
		store:  store,
		notify: notifier,
		uow:    uow.NewUoW(store),
		now:    time.Now,
	}
}

type ShowInput struct {
	Title             string
	Venue             string
	StartsAt          time.Time
	DefaultPriceCents int
	Seats             []domain.Seat
}

// CreateShow creates a show together with its seat inventory.
//
// Returns:
//   - int64: the created show ID.
//   - error: admin.ErrSeatsConflict if two seats share a section/row/number.
func (s *Service) CreateShow(ctx context.Context, in ShowInput) (int64, error) {
	const op = "service.admin.CreateShow"

	var id int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Admin().With(tx)

		var err error
		id, err = repo.CreateShow(ctx, in.Title, in.Venue, in.StartsAt, in.DefaultPriceCents)
		if err != nil {
			return err
		}

		if len(in.Seats) > 0 {
			if err := repo.BatchCreateSeats(ctx, id, in.Seats); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrSeatsConflict
				}
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// AddSeats inserts more seats into an existing show.
func (s *Service) AddSeats(ctx context.Context, showID int64, seats []domain.Seat) error {
	const op = "service.admin.AddSeats"

	if len(seats) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoSeats)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Admin().With(tx).BatchCreateSeats(ctx, showID, seats); err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return ErrSeatsConflict
			case errors.Is(err, repository.ErrNotFound):
				return ErrShowNotFound
			}
			return err
		}

		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, showID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetSeatsHeld takes seats off sale as house seats or puts them back. Either
// every seat changes or none does.
//
// Returns:
//   - error: admin.ErrSeatsNotHoldable if any seat is in the wrong state or not in the show.
func (s *Service) SetSeatsHeld(ctx context.Context, showID int64, seatIDs []int64, held bool) error {
	const op = "service.admin.SetSeatsHeld"

	if len(seatIDs) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoSeats)
	}

	ids := dedupe(seatIDs)

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		n, err := s.store.Admin().With(tx).SetHeld(ctx, showID, ids, held)
		if err != nil {
			return err
		}

		if int(n) != len(ids) {
			return ErrSeatsNotHoldable
		}

		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, showID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CheckInTicket admits a ticket holder at the door. A ticket can be used
// once and only while its order is paid.
//
// Returns:
//   - *domain.Ticket: the checked in ticket.
//   - error: ErrTicketNotFound, ErrTicketNotValid, ErrAlreadyCheckedIn.
func (s *Service) CheckInTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	const op = "service.admin.CheckInTicket"

	var out *domain.Ticket

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		t, err := repo.TicketByCode(ctx, code, true)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTicketNotFound
			}
			return err
		}

		o, err := repo.Get(ctx, t.OrderID, false)
		if err != nil {
			return err
		}

		if err := CanCheckIn(t, o); err != nil {
			return err
		}

		if err := repo.CheckIn(ctx, t.ID); err != nil {
			return err
		}

		now := s.now()
		t.CheckedInAt = &now
		out = t

		after(func(ctx context.Context) {
			s.notify.Publish(ctx, events.TicketCheckedIn, t.ShowID, map[string]any{
				"ticket_code": t.Code,
				"seat_id":     t.SeatID,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// CanCheckIn admits a valid ticket of a paid order once.
func CanCheckIn(t *domain.Ticket, o *domain.Order) error {
	if t.Status != domain.TicketValid || o.Status != domain.OrderPaid {
		return ErrTicketNotValid
	}

	if t.CheckedInAt != nil {
		return ErrAlreadyCheckedIn
	}

	return nil
}
