package reservation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/events"
	"github.com/studioline/showtix/internal/repository"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/notify"
	"github.com/studioline/showtix/internal/uow"
)

const MaxSeatsPerReservation = 10

type Config struct {
	HoldTTL time.Duration
}

type Service struct {
	store   *postgresrepo.Store
	limiter *redisrepo.SlidingWindowLimiter
	notify  *notify.Notifier
	uow     *uow.UoW
	cfg     Config
	now     func() time.Time
}

func New(
	store *postgresrepo.Store,
	limiter *redisrepo.SlidingWindowLimiter,
	notifier *notify.Notifier,
	cfg Config,
) *Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}

	return &Service{
		store:   store,
		limiter: limiter,
		notify:  notifier,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
		now:     time.Now,
	}
}

type ReserveInput struct {
	ShowID  int64
	SeatIDs []int64
	Email   string
	Phone   string
}

// Ref identifies a reservation either by its token or by its id.
type Ref struct {
	Token string
	ID    uuid.UUID
}

// Reserve holds the requested seats for the hold TTL under a new reservation.
// The request is all or nothing: if any seat cannot be held nothing is
// written.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: show, seats and optional contact details.
//   - rlKey: rate limit subject of the caller; empty disables the check.
//
// Returns:
//   - *domain.ReservationView: the reservation with its token, seats and expiry.
//   - error: validation errors (ErrNoSeats, ErrTooManySeats, ErrDuplicateSeats, ErrSeatNotInShow).
//   - error: RateLimitedError when the caller exceeded the limiter.
//   - error: ErrShowNotFound or SeatsNotFoundError for unknown show or seats.
//   - error: SeatsUnavailableError when any seat is not available.
func (s *Service) Reserve(ctx context.Context, in ReserveInput, rlKey string) (*domain.ReservationView, error) {
	const op = "service.reservation.Reserve"

	if err := ValidateSeatIDs(in.SeatIDs); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.limiter != nil && rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.now()
	res := domain.Reservation{
		ID:        uuid.New(),
		Token:     token,
		ShowID:    in.ShowID,
		Email:     in.Email,
		Phone:     in.Phone,
		ExpiresAt: now.Add(s.cfg.HoldTTL),
		IsActive:  true,
		CreatedAt: now,
	}

	var view *domain.ReservationView

	err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if _, err := s.store.Query().With(tx).GetShow(ctx, in.ShowID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShowNotFound
			}
			return err
		}

		repo := s.store.Reservations().With(tx)

		seats, err := repo.SeatsByIDs(ctx, in.SeatIDs)
		if err != nil {
			return err
		}

		if err := CheckSeats(in.ShowID, in.SeatIDs, seats, now); err != nil {
			return err
		}

		if err := repo.Create(ctx, res); err != nil {
			return err
		}

		if err := repo.LinkSeats(ctx, res.ID, in.SeatIDs); err != nil {
			return err
		}

		if err := repo.ClaimSeats(ctx, in.ShowID, res.ID, in.SeatIDs, res.ExpiresAt); err != nil {
			if errors.Is(err, repository.ErrSeatsUnavailable) {
				// lost a race with a concurrent claim after the pre-check
				return SeatsUnavailableError{SeatIDs: in.SeatIDs}
			}
			return err
		}

		for i := range seats {
			seats[i].Status = domain.SeatReserved
			seats[i].ReservedUntil = &res.ExpiresAt
			seats[i].ReservedBy = &res.ID
		}
		view = domain.NewReservationView(res, seats, now)

		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, in.ShowID)
			s.notify.Publish(ctx, events.ReservationCreated, in.ShowID, map[string]any{
				"reservation_id": res.ID,
				"seat_ids":       in.SeatIDs,
				"expires_at":     res.ExpiresAt,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return view, nil
}

// Release closes a reservation and returns its still-held seats to
// available. Releasing an already closed reservation succeeds and changes
// nothing.
//
// Returns:
//   - *domain.ReleaseResult: how many seats were released.
//   - error: ErrReservationNotFound if the reference matches no reservation.
func (s *Service) Release(ctx context.Context, ref Ref) (*domain.ReleaseResult, error) {
	const op = "service.reservation.Release"

	var out *domain.ReleaseResult

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Reservations().With(tx)

		res, err := s.lookup(ctx, repo, ref, true)
		if err != nil {
			return err
		}

		out = &domain.ReleaseResult{ReservationID: res.ID, ShowID: res.ShowID}

		if !res.IsActive {
			out.AlreadyClosed = true
			return nil
		}

		if err := repo.Deactivate(ctx, res.ID); err != nil {
			return err
		}

		released, err := repo.ReleaseSeats(ctx, res.ID)
		if err != nil {
			return err
		}
		out.ReleasedSeats = released

		after(func(ctx context.Context) {
			s.notify.ShowChanged(ctx, res.ShowID)
			s.notify.Publish(ctx, events.ReservationReleased, res.ShowID, map[string]any{
				"reservation_id": res.ID,
				"released_seats": released,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Check reports the state of a reservation without changing anything.
//
// Returns:
//   - *domain.ReservationView: the reservation with expiry details and the seats it still has.
//   - error: ErrReservationNotFound if the reference matches no reservation.
func (s *Service) Check(ctx context.Context, ref Ref) (*domain.ReservationView, error) {
	const op = "service.reservation.Check"

	repo := s.store.Reservations()

	res, err := s.lookup(ctx, repo, ref, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats, err := repo.HeldSeats(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return domain.NewReservationView(*res, seats, s.now()), nil
}

// Expire resets every lapsed hold and closes expired reservations.
//
// Returns:
//   - int64: the number of seats returned to available.
func (s *Service) Expire(ctx context.Context) (int64, error) {
	const op = "service.reservation.Expire"

	var released int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		showIDs, n, err := s.store.Reservations().With(tx).ExpireHolds(ctx)
		if err != nil {
			return err
		}
		released = n

		if len(showIDs) > 0 {
			after(func(ctx context.Context) {
				s.notify.ShowChanged(ctx, showIDs...)
				for _, id := range showIDs {
					s.notify.Publish(ctx, events.ReservationsExpired, id, nil)
				}
			})
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return released, nil
}

func (s *Service) lookup(
	ctx context.Context,
	repo *postgresrepo.ReservationRepo,
	ref Ref,
	lock bool,
) (*domain.Reservation, error) {
	var (
		res *domain.Reservation
		err error
	)

	switch {
	case ref.Token != "":
		res, err = repo.GetByToken(ctx, ref.Token, lock)
	case ref.ID != uuid.Nil:
		res, err = repo.GetByID(ctx, ref.ID, lock)
	default:
		return nil, ErrMissingReference
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return res, nil
}

// ValidateSeatIDs rejects empty, oversized and duplicate seat selections
// before any state is read.
func ValidateSeatIDs(ids []int64) error {
	if len(ids) == 0 {
		return ErrNoSeats
	}

	if len(ids) > MaxSeatsPerReservation {
		return ErrTooManySeats
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return ErrInvalidSeatID
		}
		if _, ok := seen[id]; ok {
			return ErrDuplicateSeats
		}
		seen[id] = struct{}{}
	}

	return nil
}

// CheckSeats compares the requested ids with the seats loaded for them and
// reports the first problem in order of precedence: unknown seats, seats of
// another show, then seats that cannot be held at now.
func CheckSeats(showID int64, requested []int64, found []domain.Seat, now time.Time) error {
	byID := make(map[int64]domain.Seat, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	var missing []int64
	for _, id := range requested {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return SeatsNotFoundError{SeatIDs: missing}
	}

	var unavailable []int64
	for _, id := range requested {
		seat := byID[id]
		if seat.ShowID != showID {
			return ErrSeatNotInShow
		}
		if seat.EffectiveStatus(now) != domain.SeatAvailable {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		return SeatsUnavailableError{SeatIDs: unavailable}
	}

	return nil
}

// NewToken returns a 256-bit random reservation token, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
