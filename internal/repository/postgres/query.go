package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studioline/showtix/internal/domain"
)

// effectiveStatus is the SQL rendering of domain.Seat.EffectiveStatus.
const effectiveStatus = `CASE WHEN s.status = 'reserved' AND s.reserved_until <= now()
	THEN 'available' ELSE s.status END`

type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetShow retrieves a show by its ID.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the show to retrieve.
//
// Returns:
//   - *domain.Show: the show when found.
//   - error: repository.ErrNotFound if the show is not found.
func (r *QueryRepo) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.QueryRepo.GetShow"

	var s domain.Show
	err := r.handle().QueryRow(ctx,
		`SELECT id, title, venue, starts_at, default_price_cents, created_at
		 FROM shows WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.Venue, &s.StartsAt, &s.DefaultPriceCents, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

// CountsByStatus counts the seats of a show by effective status, so lapsed
// holds are reported as available before the sweeper gets to them.
//
// Returns:
//   - *domain.ShowCounts: counts per status; all zero for a show without seats.
func (r *QueryRepo) CountsByStatus(ctx context.Context, showID int64) (*domain.ShowCounts, error) {
	const op = "postgres.QueryRepo.CountsByStatus"

	var sc domain.ShowCounts
	err := r.handle().QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE st = 'available'),
		    COUNT(*) FILTER (WHERE st = 'reserved'),
		    COUNT(*) FILTER (WHERE st = 'sold'),
		    COUNT(*) FILTER (WHERE st = 'held')
		 FROM (SELECT `+effectiveStatus+` AS st FROM seats s WHERE s.show_id = $1) x`,
		showID,
	).Scan(&sc.Available, &sc.Reserved, &sc.Sold, &sc.Held)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	sc.Total = sc.Available + sc.Reserved + sc.Sold + sc.Held

	return &sc, nil
}

// ListShowSeats lists the seats of a show ordered by section, row and number.
// Status is the effective status and hold details of lapsed holds are hidden.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - showID: show whose seats are listed.
//   - onlyAvailable: restrict the listing to seats that can be reserved now.
//   - limit, offset: pagination parameters.
func (r *QueryRepo) ListShowSeats(
	ctx context.Context,
	showID int64,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.Seat, error) {
	const op = "postgres.QueryRepo.ListShowSeats"

	rows, err := r.handle().Query(ctx,
		`SELECT s.id, s.show_id, s.section, s.row_label, s.number, s.price_cents,
		        `+effectiveStatus+`,
		        CASE WHEN s.reserved_until > now() THEN s.reserved_until END,
		        CASE WHEN s.reserved_until > now() THEN s.reserved_by END
		 FROM seats s
		 WHERE s.show_id = $1
		   AND (NOT $2 OR s.status = 'available'
		        OR (s.status = 'reserved' AND s.reserved_until <= now()))
		 ORDER BY s.section, s.row_label, s.number
		 LIMIT $3 OFFSET $4`,
		showID, onlyAvailable, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := collectSeats(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return seats, nil
}

// GetOrderWithTickets retrieves an order with its tickets.
//
// Returns:
//   - *domain.OrderWithTickets: the order with its tickets when found.
//   - error: repository.ErrNotFound if the order is not found.
func (r *QueryRepo) GetOrderWithTickets(ctx context.Context, orderID uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "postgres.QueryRepo.GetOrderWithTickets"

	orders := &OrderRepo{pool: r.pool, db: r.db}

	o, err := orders.Get(ctx, orderID, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	tickets, err := orders.Tickets(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.OrderWithTickets{Order: *o, Tickets: tickets}, nil
}

func (r *QueryRepo) TicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	const op = "postgres.QueryRepo.TicketByCode"

	orders := &OrderRepo{pool: r.pool, db: r.db}

	t, err := orders.TicketByCode(ctx, code, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return t, nil
}
