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

const seatColumns = `s.id, s.show_id, s.section, s.row_label, s.number, s.price_cents,
	s.status, s.reserved_until, s.reserved_by`

const reservationColumns = `id, token, show_id, email, phone, expires_at, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSeat(row scanner) (domain.Seat, error) {
	var s domain.Seat
	var status string

	if err := row.Scan(
		&s.ID,
		&s.ShowID,
		&s.Section,
		&s.Row,
		&s.Number,
		&s.PriceCents,
		&status,
		&s.ReservedUntil,
		&s.ReservedBy,
	); err != nil {
		return domain.Seat{}, err
	}

	s.Status = domain.SeatStatus(status)

	return s, nil
}

func collectSeats(rows pgx.Rows) ([]domain.Seat, error) {
	defer rows.Close()

	var out []domain.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

func scanReservation(row scanner) (*domain.Reservation, error) {
	var r domain.Reservation

	if err := row.Scan(
		&r.ID,
		&r.Token,
		&r.ShowID,
		&r.Email,
		&r.Phone,
		&r.ExpiresAt,
		&r.IsActive,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &r, nil
}

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// SeatsByIDs loads the given seats regardless of the show they belong to.
//
// Returns:
//   - []domain.Seat: the seats found, ordered by id; missing ids are simply absent.
func (r *ReservationRepo) SeatsByIDs(ctx context.Context, seatIDs []int64) ([]domain.Seat, error) {
	const op = "postgres.ReservationRepo.SeatsByIDs"

	rows, err := r.handle().Query(ctx,
		`SELECT `+seatColumns+`
		 FROM seats s
		 WHERE s.id = ANY($1)
		 ORDER BY s.id`,
		seatIDs,
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

// Create inserts a reservation row. It must exist before junction rows and
// seat claims reference it.
func (r *ReservationRepo) Create(ctx context.Context, res domain.Reservation) error {
	const op = "postgres.ReservationRepo.Create"

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO reservations(id, token, show_id, email, phone, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		res.ID, res.Token, res.ShowID, res.Email, res.Phone, res.ExpiresAt,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *ReservationRepo) LinkSeats(ctx context.Context, reservationID uuid.UUID, seatIDs []int64) error {
	const op = "postgres.ReservationRepo.LinkSeats"

	batch := &pgx.Batch{}
	for _, sid := range seatIDs {
		batch.Queue(
			`INSERT INTO reservation_seats(reservation_id, seat_id) VALUES ($1, $2)`,
			reservationID, sid,
		)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// ClaimSeats moves the given seats to reserved in one conditional statement.
// A seat qualifies when it is available or its previous hold has lapsed, so
// two concurrent claims can never both succeed for the same seat.
//
// Returns:
//   - error: repository.ErrSeatsUnavailable if fewer seats than requested qualified.
func (r *ReservationRepo) ClaimSeats(
	ctx context.Context,
	showID int64,
	reservationID uuid.UUID,
	seatIDs []int64,
	until time.Time,
) error {
	const op = "postgres.ReservationRepo.ClaimSeats"

	tag, err := r.handle().Exec(ctx,
		`UPDATE seats
		    SET status = 'reserved', reserved_until = $3, reserved_by = $4
		  WHERE show_id = $1
		    AND id = ANY($2)
		    AND (status = 'available'
		         OR (status = 'reserved' AND reserved_until <= now()))`,
		showID, seatIDs, until, reservationID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if int(tag.RowsAffected()) != len(seatIDs) {
		return fmt.Errorf("%s:%w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

// GetByToken looks a reservation up by its bearer token. With lock set the
// row is locked until the surrounding transaction ends.
func (r *ReservationRepo) GetByToken(ctx context.Context, token string, lock bool) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.GetByToken"

	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE token = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	res, err := scanReservation(r.handle().QueryRow(ctx, q, token))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return res, nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uuid.UUID, lock bool) (*domain.Reservation, error) {
	const op = "postgres.ReservationRepo.GetByID"

	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}

	res, err := scanReservation(r.handle().QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return res, nil
}

// Seats lists the seats linked to a reservation through the junction table.
// With lock set the seat rows are locked for the surrounding transaction.
func (r *ReservationRepo) Seats(ctx context.Context, reservationID uuid.UUID, lock bool) ([]domain.Seat, error) {
	const op = "postgres.ReservationRepo.Seats"

	q := `SELECT ` + seatColumns + `
		  FROM reservation_seats rs
		  JOIN seats s ON s.id = rs.seat_id
		  WHERE rs.reservation_id = $1
		  ORDER BY s.section, s.row_label, s.number`
	if lock {
		q += ` FOR UPDATE OF s`
	}

	rows, err := r.handle().Query(ctx, q, reservationID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := collectSeats(rows)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return seats, nil
}

// HeldSeats lists the seats the reservation still has: seats it holds and
// seats bought through the order made from it. Seats that lapsed and went to
// someone else, or were released, are left out.
func (r *ReservationRepo) HeldSeats(ctx context.Context, reservationID uuid.UUID) ([]domain.Seat, error) {
	const op = "postgres.ReservationRepo.HeldSeats"

	rows, err := r.handle().Query(ctx,
		`SELECT `+seatColumns+`
		 FROM reservation_seats rs
		 JOIN seats s ON s.id = rs.seat_id
		 WHERE rs.reservation_id = $1
		   AND ((s.status = 'reserved' AND s.reserved_by = $1)
		        OR EXISTS (
		            SELECT 1
		              FROM tickets t
		              JOIN orders o ON o.id = t.order_id
		             WHERE o.reservation_id = $1 AND t.seat_id = s.id AND t.status = 'valid'))
		 ORDER BY s.section, s.row_label, s.number`,
		reservationID,
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

func (r *ReservationRepo) Deactivate(ctx context.Context, reservationID uuid.UUID) error {
	const op = "postgres.ReservationRepo.Deactivate"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reservations
		    SET is_active = FALSE, released_at = now()
		  WHERE id = $1`,
		reservationID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrReservationNotFound)
	}

	return nil
}

// ReleaseSeats returns seats still held by the reservation to available.
// Seats already sold or re-claimed by another reservation are left alone.
//
// Returns:
//   - int64: the number of seats released.
func (r *ReservationRepo) ReleaseSeats(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	const op = "postgres.ReservationRepo.ReleaseSeats"

	tag, err := r.handle().Exec(ctx,
		`UPDATE seats
		    SET status = 'available', reserved_until = NULL, reserved_by = NULL
		  WHERE reserved_by = $1 AND status = 'reserved'`,
		reservationID,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// ExpireHolds resets every lapsed hold and deactivates expired reservations.
//
// Returns:
//   - []int64: ids of the shows whose seats changed.
//   - int64: the number of seats released.
func (r *ReservationRepo) ExpireHolds(ctx context.Context) ([]int64, int64, error) {
	const op = "postgres.ReservationRepo.ExpireHolds"

	db := r.handle()

	rows, err := db.Query(ctx,
		`UPDATE seats
		    SET status = 'available', reserved_until = NULL, reserved_by = NULL
		  WHERE status = 'reserved' AND reserved_until <= now()
		  RETURNING show_id`,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	var released int64
	seen := make(map[int64]struct{})
	var showIDs []int64

	for rows.Next() {
		var showID int64
		if err := rows.Scan(&showID); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		released++
		if _, ok := seen[showID]; !ok {
			seen[showID] = struct{}{}
			showIDs = append(showIDs, showID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`UPDATE reservations
		    SET is_active = FALSE, released_at = now()
		  WHERE is_active AND expires_at <= now()`,
	); err != nil {
		return showIDs, released, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return showIDs, released, nil
}
