package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/studioline/showtix/internal/config"
	"github.com/studioline/showtix/internal/events"
	"github.com/studioline/showtix/internal/payment"
	"github.com/studioline/showtix/internal/postgres"
	"github.com/studioline/showtix/internal/redis"
	postgresrepo "github.com/studioline/showtix/internal/repository/postgres"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
	"github.com/studioline/showtix/internal/service"
	"github.com/studioline/showtix/internal/service/orders"
	"github.com/studioline/showtix/internal/service/query"
	"github.com/studioline/showtix/internal/service/reservation"
	httpgin "github.com/studioline/showtix/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

const (
	idempotencyTTL  = 24 * time.Hour
	eventBufferSize = 1024
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	services   *service.Services
	kafka      *events.KafkaProducer
	rabbit     *events.RabbitPublisher
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(cfg.Postgres.DSN()); err != nil {
			return nil, fmt.Errorf("%s: migrate: %w", op, err)
		}
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: int32(cfg.Postgres.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}

	a := &App{cfg: cfg, logger: logger, pool: pool, rdb: rdb}

	publisher, err := a.newPublisher()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: events: %w", op, err)
	}

	store := postgresrepo.NewStore(pool)
	idem := redisrepo.NewIdempotencyStore(rdb, idempotencyTTL)

	deps := service.Deps{
		Store:     store,
		Cache:     redisrepo.NewCache(rdb),
		PubSub:    redisrepo.NewShowsPubSub(rdb),
		Limiter:   redisrepo.NewSlidingWindowLimiter(rdb, "reserve", cfg.Reservation.RateLimit, cfg.Reservation.RateWindow),
		Dedup:     idem,
		Publisher: publisher,
		Logger:    logger,
	}

	// interfaces stay untyped nil when payments are off
	if cfg.Payments.Enabled {
		deps.Provider = payment.NewStripeProvider(cfg.Payments.StripeKey)
		deps.Webhook = payment.NewStripeWebhook(cfg.Payments.WebhookSecret)
	} else {
		logger.Warn("stripe is not configured, orders are settled at the box office")
	}

	a.services = service.NewServices(deps, service.Config{
		Reservation: reservation.Config{HoldTTL: cfg.Reservation.HoldTTL},
		Query: query.Config{
			ShowSummaryTTL:   time.Minute,
			AvailabilityTTL:  5 * time.Second,
			DefaultSeatsPage: 200,
			MaxSeatsPage:     1000,
			CacheSeatMap:     true,
			SeatMapTTL:       5 * time.Second,
		},
		Orders: orders.Config{
			Currency:   cfg.Payments.Currency,
			PendingTTL: cfg.Payments.PendingTTL,
		},
	})

	router := httpgin.NewRouter(httpgin.API{
		Reservations: a.services.Reservation,
		Orders:       a.services.Orders,
		Query:        a.services.Query,
		Admin:        a.services.Admin,
		Webhooks:     a.services.Payments,
		Idem:         idem,
		Ready: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			return rdb.Ping(ctx).Err()
		},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) newPublisher() (events.Publisher, error) {
	switch a.cfg.Events.Driver {
	case "kafka":
		a.kafka = events.NewKafkaProducer(a.cfg.Events.KafkaBrokers, a.cfg.Events.KafkaTopic, eventBufferSize, a.logger)
		return a.kafka, nil
	case "rabbitmq":
		p, err := events.NewRabbitPublisher(a.cfg.Events.RabbitURL, a.cfg.Events.RabbitQueue)
		if err != nil {
			return nil, err
		}
		a.rabbit = p
		return p, nil
	default:
		return events.Nop{}, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if interval := a.cfg.Reservation.SweepInterval; interval > 0 {
		g.Go(func() error {
			a.sweep(gCtx, interval)
			return nil
		})
	}

	if a.kafka != nil {
		g.Go(func() error {
			return a.kafka.Run(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// sweep releases lapsed reservations and abandoned orders every interval
// until ctx is done.
func (a *App) sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.services.Reservation.Expire(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("reservation sweep failed", slog.Any("err", err))
				}
				continue
			}
			if n > 0 {
				a.logger.Info("released expired reservations", slog.Int64("seats", n))
			}

			cancelled, err := a.services.Orders.ExpirePending(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("pending order sweep failed", slog.Any("err", err))
				}
				continue
			}
			if cancelled > 0 {
				a.logger.Info("cancelled abandoned orders", slog.Int("orders", cancelled))
			}
		}
	}
}

func (a *App) close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			a.logger.Warn("rabbitmq close failed", slog.Any("err", err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
