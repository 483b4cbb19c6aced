package service

import (
	"log/slog"

	"github.com/studioline/showtix/internal/events"
	"github.com/studioline/showtix/internal/payment"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service/admin"
	"github.com/studioline/showtix/internal/service/notify"
	"github.com/studioline/showtix/internal/service/orders"
	"github.com/studioline/showtix/internal/service/payments"
	"github.com/studioline/showtix/internal/service/query"
	"github.com/studioline/showtix/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Query       *query.Service
	Admin       *admin.Service
	Orders      *orders.Service
	Payments    *payments.Service
}

type Config struct {
	Reservation reservation.Config
	Query       query.Config
	Orders      orders.Config
}

// Deps are the infrastructure pieces shared by the services. Provider and
// Webhook are nil when payments are disabled.
type Deps struct {
	Store     *postgresrepo.Store
	Cache     *redisrepo.Cache
	PubSub    *redisrepo.ShowsPubSub
	Limiter   *redisrepo.SlidingWindowLimiter
	Dedup     *redisrepo.IdempotencyStore
	Publisher events.Publisher
	Provider  payment.Provider
	Webhook   payments.Verifier
	Logger    *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	n := notify.New(d.Cache, d.PubSub, d.Publisher, d.Logger)

	ordersSvc := orders.New(d.Store, d.Provider, n, cfg.Orders, d.Logger)

	var dedup payments.Dedup
	if d.Dedup != nil {
		dedup = d.Dedup
	}

	return &Services{
		Reservation: reservation.New(d.Store, d.Limiter, n, cfg.Reservation),
		Query:       query.New(d.Store, d.Cache, d.PubSub, cfg.Query),
		Admin:       admin.New(d.Store, n),
		Orders:      ordersSvc,
		Payments:    payments.New(d.Webhook, ordersSvc, dedup, d.Logger),
	}
}
