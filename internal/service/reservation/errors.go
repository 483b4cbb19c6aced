package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoSeats             = errors.New("no seats selected")
	ErrTooManySeats        = fmt.Errorf("at most %d seats per reservation", MaxSeatsPerReservation)
	ErrDuplicateSeats      = errors.New("duplicate seat ids")
	ErrInvalidSeatID       = errors.New("invalid seat id")
	ErrSeatNotInShow       = errors.New("seat belongs to another show")
	ErrShowNotFound        = errors.New("show not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrMissingReference    = errors.New("token or reservation_id is required")
)

type SeatsUnavailableError struct {
	SeatIDs []int64
}

func (e SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

type SeatsNotFoundError struct {
	SeatIDs []int64
}

func (e SeatsNotFoundError) Error() string {
	return fmt.Sprintf("seats not found: %v", e.SeatIDs)
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
