package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studioline/showtix/internal/domain"
)

func TestCheckConvertible(t *testing.T) {
	now := time.Date(2026, 6, 12, 19, 0, 0, 0, time.UTC)

	active := func(email string, expires time.Time) *domain.Reservation {
		return &domain.Reservation{Email: email, IsActive: true, ExpiresAt: expires}
	}

	tests := []struct {
		name  string
		res   *domain.Reservation
		email string
		want  error
	}{
		{"matching email", active("Parent@Example.com", now.Add(time.Minute)), " parent@example.COM ", nil},
		{"no email on reservation", active("", now.Add(time.Minute)), "anyone@example.com", nil},
		{"email mismatch", active("parent@example.com", now.Add(time.Minute)), "other@example.com", ErrEmailMismatch},
		{"mismatch wins over expiry", active("parent@example.com", now.Add(-time.Minute)), "other@example.com", ErrEmailMismatch},
		{"expired", active("", now.Add(-time.Second)), "", ErrReservationExpired},
		{"expires exactly now is still valid", active("", now), "", nil},
		{"inactive", &domain.Reservation{IsActive: false, ExpiresAt: now.Add(time.Minute)}, "", ErrReservationInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConvertible(tt.res, tt.email, now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckSeatsHeld(t *testing.T) {
	resID := uuid.New()
	other := uuid.New()

	held := domain.Seat{ID: 1, Status: domain.SeatReserved, ReservedBy: &resID}

	assert.NoError(t, CheckSeatsHeld(resID, []domain.Seat{held}))
	assert.ErrorIs(t, CheckSeatsHeld(resID, nil), ErrSeatsNoLongerHeld)
	assert.ErrorIs(t, CheckSeatsHeld(resID, []domain.Seat{held, {ID: 2, Status: domain.SeatAvailable}}), ErrSeatsNoLongerHeld)
	assert.ErrorIs(t, CheckSeatsHeld(resID, []domain.Seat{{ID: 3, Status: domain.SeatReserved, ReservedBy: &other}}), ErrSeatsNoLongerHeld)
	assert.ErrorIs(t, CheckSeatsHeld(resID, []domain.Seat{{ID: 4, Status: domain.SeatSold}}), ErrSeatsNoLongerHeld)
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, domain.OrderPending, InitialStatus(2500, true))
	assert.Equal(t, domain.OrderPaid, InitialStatus(0, true))
	assert.Equal(t, domain.OrderPaid, InitialStatus(2500, false))
}

func TestNewTicketCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 200; i++ {
		code, err := NewTicketCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z2-7]{5}-[A-Z2-7]{5}$`, code)

		_, dup := seen[code]
		require.False(t, dup)
		seen[code] = struct{}{}
	}
}

func TestExpirePendingDisabled(t *testing.T) {
	svc := New(nil, nil, nil, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := svc.ExpirePending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
