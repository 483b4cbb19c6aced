package httpgin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/studioline/showtix/internal/payment"
	"github.com/studioline/showtix/internal/service/admin"
	"github.com/studioline/showtix/internal/service/orders"
	"github.com/studioline/showtix/internal/service/payments"
	"github.com/studioline/showtix/internal/service/query"
	"github.com/studioline/showtix/internal/service/reservation"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	// 400
	{reservation.ErrNoSeats, http.StatusBadRequest},
	{reservation.ErrTooManySeats, http.StatusBadRequest},
	{reservation.ErrDuplicateSeats, http.StatusBadRequest},
	{reservation.ErrInvalidSeatID, http.StatusBadRequest},
	{reservation.ErrSeatNotInShow, http.StatusBadRequest},
	{reservation.ErrMissingReference, http.StatusBadRequest},
	{admin.ErrNoSeats, http.StatusBadRequest},
	{orders.ErrInvalidStatus, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},
	{payment.ErrMalformedEvent, http.StatusBadRequest},
	// 403
	{orders.ErrEmailMismatch, http.StatusForbidden},
	// 404
	{reservation.ErrShowNotFound, http.StatusNotFound},
	{reservation.ErrReservationNotFound, http.StatusNotFound},
	{orders.ErrReservationNotFound, http.StatusNotFound},
	{orders.ErrOrderNotFound, http.StatusNotFound},
	{query.ErrShowNotFound, http.StatusNotFound},
	{query.ErrTicketNotFound, http.StatusNotFound},
	{admin.ErrShowNotFound, http.StatusNotFound},
	{admin.ErrTicketNotFound, http.StatusNotFound},
	{payments.ErrDisabled, http.StatusNotFound},
	// 409
	{orders.ErrSeatsNoLongerHeld, http.StatusConflict},
	{orders.ErrNotRefundable, http.StatusConflict},
	{admin.ErrSeatsConflict, http.StatusConflict},
	{admin.ErrSeatsNotHoldable, http.StatusConflict},
	{admin.ErrTicketNotValid, http.StatusConflict},
	{admin.ErrAlreadyCheckedIn, http.StatusConflict},
	// 410
	{orders.ErrReservationInactive, http.StatusGone},
	{orders.ErrReservationExpired, http.StatusGone},
	// 502
	{orders.ErrPaymentProvider, http.StatusBadGateway},
}

// respondErr maps service errors to a status and a client safe message.
// Anything unrecognised is a 500 and is attached to the context for the
// logging middleware.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		unavailable reservation.SeatsUnavailableError
		notFound    reservation.SeatsNotFoundError
		limited     reservation.RateLimitedError
	)

	switch {
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats unavailable", SeatIDs: unavailable.SeatIDs})
		return
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "seats not found", SeatIDs: notFound.SeatIDs})
		return
	case errors.As(err, &limited):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			c.JSON(m.status, ErrorResponse{Error: m.err.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors name fields the way clients
// send them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid uuid"
	case "min":
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}

// bindErrorMessage turns a ShouldBindJSON failure into a single message.
func bindErrorMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request body"
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fe.Field()+" "+validationMessage(fe))
	}

	return strings.Join(parts, "; ")
}
