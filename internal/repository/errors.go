package repository

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrSeatsUnavailable    = errors.New("some seats unavailable")
	ErrSeatsNotFound       = errors.New("some seats not found")
	ErrSeatNotInShow       = errors.New("seat belongs to another show")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)
