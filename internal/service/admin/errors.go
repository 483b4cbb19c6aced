package admin

import (
	"errors"
)

var (
	ErrShowNotFound     = errors.New("show not found")
	ErrSeatsConflict    = errors.New("some seats already exist")
	ErrSeatsNotHoldable = errors.New("some seats are not in a state that allows this change")
	ErrNoSeats          = errors.New("no seats given")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrTicketNotValid   = errors.New("ticket is void or its order is not paid")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
)
