package orders

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrEmailMismatch       = errors.New("email does not match reservation")
	ErrReservationInactive = errors.New("reservation is no longer active")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrSeatsNoLongerHeld   = errors.New("reserved seats are no longer held")
	ErrNotRefundable       = errors.New("only paid orders can be refunded")
	ErrPaymentProvider     = errors.New("payment provider error")
	ErrInvalidStatus       = errors.New("invalid target status")
)
