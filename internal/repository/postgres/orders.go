package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studioline/showtix/internal/domain"
	"github.com/studioline/showtix/internal/repository"
)

const orderColumns = `id, show_id, reservation_id, customer_name, customer_email, customer_phone,
	total_cents, currency, status, payment_intent_id, created_at, updated_at`

const ticketColumns = `id, order_id, show_id, seat_id, code, price_cents, status, checked_in_at, created_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var status string

	if err := row.Scan(
		&o.ID,
		&o.ShowID,
		&o.ReservationID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.TotalCents,
		&o.Currency,
		&status,
		&o.PaymentIntentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)

	return &o, nil
}

func scanTicket(row scanner) (domain.Ticket, error) {
	var t domain.Ticket
	var status string

	if err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.ShowID,
		&t.SeatID,
		&t.Code,
		&t.PriceCents,
		&status,
		&t.CheckedInAt,
		&t.Created,
	); err != nil {
		return domain.Ticket{}, err
	}

	t.Status = domain.TicketStatus(status)

	return t, nil
}

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *OrderRepo) Create(ctx context.Context, o domain.Order) error {
	const op = "postgres.OrderRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO orders(id, show_id, reservation_id, customer_name, customer_email,
		                    customer_phone, total_cents, currency, status, payment_intent_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.ShowID, o.ReservationID, o.CustomerName, o.CustomerEmail,
		o.CustomerPhone, o.TotalCents, o.Currency, string(o.Status), o.PaymentIntentID,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *OrderRepo) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	const op = "postgres.OrderRepo.CreateTickets"

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(id, order_id, show_id, seat_id, code, price_cents, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.OrderID, t.ShowID, t.SeatID, t.Code, t.PriceCents, string(t.Status),
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// MarkSeatsSold flips reserved seats of a reservation to sold and clears
// their hold fields.
//
// Returns:
//   - error: repository.ErrSeatsUnavailable if any seat is no longer held by the reservation.
func (r *OrderRepo) MarkSeatsSold(ctx context.Context, reservationID uuid.UUID, seatIDs []int64) error {
	const op = "postgres.OrderRepo.MarkSeatsSold"

	tag, err := r.handle().Exec(ctx,
		`UPDATE seats
		    SET status = 'sold', reserved_until = NULL, reserved_by = NULL
		  WHERE id = ANY($1) AND reserved_by = $2 AND status = 'reserved'`,
		seatIDs, reservationID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if int(tag.RowsAffected()) != len(seatIDs) {
		return fmt.Errorf("%s:%w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	o, err := scanOrder(r.handle().QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return o, nil
}

func (r *OrderRepo) GetByPaymentIntent(ctx context.Context, intentID string, lock bool) (*domain.Order, error) {
	const op = "postgres.OrderRepo.GetByPaymentIntent"

	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	o, err := scanOrder(r.handle().QueryRow(ctx, q, intentID))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return o, nil
}

func (r *OrderRepo) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	const op = "postgres.OrderRepo.SetPaymentIntent"

	tag, err := r.handle().Exec(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = now() WHERE id = $1`,
		id, intentID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ListStalePending returns up to limit pending orders created at or before
// cutoff, oldest first.
func (r *OrderRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.ListStalePending"

	rows, err := r.handle().Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = 'pending' AND created_at <= $1
		 ORDER BY created_at
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// UpdateStatus moves an order from one of the allowed statuses to next.
//
// Returns:
//   - error: repository.ErrInvalidTransition if the order is not in an allowed status.
func (r *OrderRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	next domain.OrderStatus,
	from ...domain.OrderStatus,
) error {
	const op = "postgres.OrderRepo.UpdateStatus"

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE orders
		    SET status = $2, updated_at = now()
		  WHERE id = $1 AND status = ANY($3)`,
		id, string(next), allowed,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrInvalidTransition)
	}

	return nil
}

func (r *OrderRepo) Tickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	const op = "postgres.OrderRepo.Tickets"

	rows, err := r.handle().Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets
		 WHERE order_id = $1
		 ORDER BY created_at, code`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ReleaseSeats returns the sold seats behind the order's valid tickets to
// available and voids those tickets.
//
// Returns:
//   - int64: the number of seats released.
func (r *OrderRepo) ReleaseSeats(ctx context.Context, orderID uuid.UUID) (int64, error) {
	const op = "postgres.OrderRepo.ReleaseSeats"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE seats
		    SET status = 'available', reserved_until = NULL, reserved_by = NULL
		  WHERE status = 'sold'
		    AND id IN (SELECT seat_id FROM tickets WHERE order_id = $1 AND status = 'valid')`,
		orderID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`UPDATE tickets SET status = 'void' WHERE order_id = $1 AND status = 'valid'`,
		orderID,
	); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// RestoreSeats re-sells seats of a previously released order when they are
// still free, and revives the matching tickets.
//
// Returns:
//   - int64: the number of seats restored.
//   - int: the number of tickets on the order.
func (r *OrderRepo) RestoreSeats(ctx context.Context, orderID uuid.UUID) (int64, int, error) {
	const op = "postgres.OrderRepo.RestoreSeats"

	db := r.handle()

	var total int
	if err := db.QueryRow(ctx,
		`SELECT count(*) FROM tickets WHERE order_id = $1`,
		orderID,
	).Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	tag, err := db.Exec(ctx,
		`WITH restored AS (
		    UPDATE seats
		       SET status = 'sold', reserved_until = NULL, reserved_by = NULL
		     WHERE id IN (SELECT seat_id FROM tickets WHERE order_id = $1 AND status = 'void')
		       AND (status = 'available'
		            OR (status = 'reserved' AND reserved_until <= now()))
		    RETURNING id
		 )
		 UPDATE tickets
		    SET status = 'valid'
		  WHERE order_id = $1 AND seat_id IN (SELECT id FROM restored)`,
		orderID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), total, nil
}

func (r *OrderRepo) TicketByCode(ctx context.Context, code string, lock bool) (*domain.Ticket, error) {
	const op = "postgres.OrderRepo.TicketByCode"

	q := `SELECT ` + ticketColumns + ` FROM tickets WHERE code = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	t, err := scanTicket(r.handle().QueryRow(ctx, q, code))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

func (r *OrderRepo) CheckIn(ctx context.Context, ticketID uuid.UUID) error {
	const op = "postgres.OrderRepo.CheckIn"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		    SET checked_in_at = now()
		  WHERE id = $1 AND status = 'valid' AND checked_in_at IS NULL`,
		ticketID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	return nil
}
