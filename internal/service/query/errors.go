package query

import (
	"errors"
)

var (
	ErrShowNotFound   = errors.New("show not found")
	ErrTicketNotFound = errors.New("ticket not found")
)
