package httpgin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/studioline/showtix/internal/domain"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/admin"
	"github.com/studioline/showtix/internal/service/orders"
	"github.com/studioline/showtix/internal/service/reservation"
)

type MockReservations struct{ mock.Mock }

func (m *MockReservations) Reserve(ctx context.Context, in reservation.ReserveInput, rlKey string) (*domain.ReservationView, error) {
	args := m.Called(ctx, in, rlKey)
	v, _ := args.Get(0).(*domain.ReservationView)
	return v, args.Error(1)
}

func (m *MockReservations) Release(ctx context.Context, ref reservation.Ref) (*domain.ReleaseResult, error) {
	args := m.Called(ctx, ref)
	v, _ := args.Get(0).(*domain.ReleaseResult)
	return v, args.Error(1)
}

func (m *MockReservations) Check(ctx context.Context, ref reservation.Ref) (*domain.ReservationView, error) {
	args := m.Called(ctx, ref)
	v, _ := args.Get(0).(*domain.ReservationView)
	return v, args.Error(1)
}

func (m *MockReservations) Expire(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) CreateFromReservation(ctx context.Context, in orders.CreateInput) (*domain.OrderWithTickets, error) {
	args := m.Called(ctx, in)
	v, _ := args.Get(0).(*domain.OrderWithTickets)
	return v, args.Error(1)
}

func (m *MockOrders) Get(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.OrderWithTickets)
	return v, args.Error(1)
}

func (m *MockOrders) Refund(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.OrderWithTickets)
	return v, args.Error(1)
}

func (m *MockOrders) ExpirePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockQuery struct{ mock.Mock }

func (m *MockQuery) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.Show)
	return v, args.Error(1)
}

func (m *MockQuery) CountsByStatus(ctx context.Context, showID int64) (*domain.ShowCounts, error) {
	args := m.Called(ctx, showID)
	v, _ := args.Get(0).(*domain.ShowCounts)
	return v, args.Error(1)
}

func (m *MockQuery) ListShowSeats(ctx context.Context, showID int64, onlyAvailable bool, limit, offset int) ([]domain.Seat, error) {
	args := m.Called(ctx, showID, onlyAvailable, limit, offset)
	v, _ := args.Get(0).([]domain.Seat)
	return v, args.Error(1)
}

func (m *MockQuery) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	args := m.Called(ctx, code)
	v, _ := args.Get(0).(*domain.Ticket)
	return v, args.Error(1)
}

func (m *MockQuery) WatchShow(ctx context.Context, showID int64, fn func(redisrepo.ShowChange)) error {
	return m.Called(ctx, showID, fn).Error(0)
}

type MockAdmin struct{ mock.Mock }

func (m *MockAdmin) CreateShow(ctx context.Context, in admin.ShowInput) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdmin) AddSeats(ctx context.Context, showID int64, seats []domain.Seat) error {
	return m.Called(ctx, showID, seats).Error(0)
}

func (m *MockAdmin) SetSeatsHeld(ctx context.Context, showID int64, seatIDs []int64, held bool) error {
	return m.Called(ctx, showID, seatIDs, held).Error(0)
}

func (m *MockAdmin) CheckInTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	args := m.Called(ctx, code)
	v, _ := args.Get(0).(*domain.Ticket)
	return v, args.Error(1)
}

type MockWebhooks struct{ mock.Mock }

func (m *MockWebhooks) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

type MockIdem struct{ mock.Mock }

func (m *MockIdem) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdem) SaveResult(ctx context.Context, key string, payload []byte) error {
	return m.Called(ctx, key, payload).Error(0)
}

func (m *MockIdem) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).([]byte)
	return v, args.Bool(1), args.Error(2)
}

func (m *MockIdem) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
