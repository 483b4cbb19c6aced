package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studioline/showtix/internal/domain"
)

type AdminRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AdminRepo) CreateShow(
	ctx context.Context,
	title, venue string,
	startsAt time.Time,
	defaultPriceCents int,
) (int64, error) {
	const op = "postgres.AdminRepo.CreateShow"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO shows(title, venue, starts_at, default_price_cents)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		title, venue, startsAt, defaultPriceCents,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// BatchCreateSeats inserts seats for a show in one round trip. A duplicate
// section/row/number label fails the whole batch with repository.ErrConflict.
func (r *AdminRepo) BatchCreateSeats(ctx context.Context, showID int64, seats []domain.Seat) error {
	const op = "postgres.AdminRepo.BatchCreateSeats"

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO seats(show_id, section, row_label, number, price_cents, status)
			 VALUES ($1, $2, $3, $4, $5, 'available')`,
			showID, s.Section, s.Row, s.Number, s.PriceCents,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// SetHeld moves seats between available and held. A lapsed hold counts as
// available. Seats in any other state are left untouched and not counted.
func (r *AdminRepo) SetHeld(ctx context.Context, showID int64, seatIDs []int64, held bool) (int64, error) {
	const op = "postgres.AdminRepo.SetHeld"

	q := `UPDATE seats
	         SET status = 'held', reserved_until = NULL, reserved_by = NULL
	       WHERE show_id = $1 AND id = ANY($2)
	         AND (status = 'available' OR (status = 'reserved' AND reserved_until <= now()))`
	if !held {
		q = `UPDATE seats
		        SET status = 'available'
		      WHERE show_id = $1 AND id = ANY($2) AND status = 'held'`
	}

	tag, err := r.handle().Exec(ctx, q, showID, seatIDs)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}
