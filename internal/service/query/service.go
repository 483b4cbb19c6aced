package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/repository"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
)

type Config struct {
	ShowSummaryTTL   time.Duration
	AvailabilityTTL  time.Duration
	DefaultSeatsPage int
	MaxSeatsPage     int
	CacheSeatMap     bool
	SeatMapTTL       time.Duration
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.ShowsPubSub
	cfg    Config
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowsPubSub,
	cfg Config,
) *Service {
	if cfg.ShowSummaryTTL <= 0 {
		cfg.ShowSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.DefaultSeatsPage <= 0 {
		cfg.DefaultSeatsPage = 100
	}

	if cfg.MaxSeatsPage <= 0 {
		cfg.MaxSeatsPage = 500
	}

	if cfg.SeatMapTTL <= 0 {
		cfg.SeatMapTTL = 15 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		cfg:    cfg,
	}
}

// GetShow retrieves a show by its ID through the read-through cache.
//
// Returns:
//   - *domain.Show: the show.
//   - error: query.ErrShowNotFound if the show is not found.
func (s *Service) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "service.query.GetShow"

	show, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyShowSummary(id),
		s.cfg.ShowSummaryTTL,
		func(ctx context.Context) (domain.Show, error) {
			sh, err := s.store.Query().GetShow(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Show{}, ErrShowNotFound
				}

				return domain.Show{}, err
			}

			return *sh, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &show, nil
}

// CountsByStatus returns seat counts per effective status for a show. Lapsed
// holds are counted as available.
//
// Returns:
//   - *domain.ShowCounts: the counts.
//   - error: query.ErrShowNotFound if the show is not found.
func (s *Service) CountsByStatus(ctx context.Context, showID int64) (*domain.ShowCounts, error) {
	const op = "service.query.CountsByStatus"

	if _, err := s.GetShow(ctx, showID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyShowAvailability(showID),
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.ShowCounts, error) {
			c, err := s.store.Query().CountsByStatus(ctx, showID)
			if err != nil {
				return domain.ShowCounts{}, err
			}

			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &counts, nil
}

// ListShowSeats retrieves a page of a show's seat map, optionally limited to
// seats that can be reserved right now. Limit is clamped to the configured
// page sizes.
//
// Returns:
//   - []domain.Seat: seats ordered by section, row and number.
//   - error: query.ErrShowNotFound if the show is not found.
func (s *Service) ListShowSeats(
	ctx context.Context,
	showID int64,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.Seat, error) {
	const op = "service.query.ListShowSeats"

	if limit <= 0 {
		limit = s.cfg.DefaultSeatsPage
	}

	if limit > s.cfg.MaxSeatsPage {
		limit = s.cfg.MaxSeatsPage
	}

	if offset < 0 {
		offset = 0
	}

	if _, err := s.GetShow(ctx, showID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	load := func(ctx context.Context) ([]domain.Seat, error) {
		return s.store.Query().ListShowSeats(ctx, showID, onlyAvailable, limit, offset)
	}

	var (
		seats []domain.Seat
		err   error
	)

	if s.cfg.CacheSeatMap {
		field := fmt.Sprintf("%t:%d:%d", onlyAvailable, limit, offset)
		seats, err = redisrepo.GetOrSetFieldJSON(ctx, s.cache, redisrepo.KeyShowSeatMap(showID), field, s.cfg.SeatMapTTL, load)
	} else {
		seats, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if seats == nil {
		seats = []domain.Seat{}
	}

	return seats, nil
}

// GetTicket looks a ticket up by its code.
func (s *Service) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	const op = "service.query.GetTicket"

	t, err := s.store.Query().TicketByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// WatchShow calls fn for every change to the show's seats until ctx is done.
//
// Returns:
//   - error: query.ErrShowNotFound if the show is not found, otherwise the
//     subscription error once ctx ends.
func (s *Service) WatchShow(ctx context.Context, showID int64, fn func(redisrepo.ShowChange)) error {
	const op = "service.query.WatchShow"

	if _, err := s.GetShow(ctx, showID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.pubsub.Subscribe(ctx, func(_ context.Context, msg redisrepo.ShowChange) {
		if msg.ShowID == showID {
			fn(msg)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
