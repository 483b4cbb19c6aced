// Package notify fans out the side effects of a committed change: cache
// invalidation, seat map change notifications and domain events. Every
// method is best effort; failures are logged and never returned.
package notify

import (
	"context"
	"log/slog"

	"github.com/studioline/showtix/internal/events"
	redisrepo "github.com/studioline/showtix/internal/repository/redis"
)

type Notifier struct {
	cache     *redisrepo.Cache
	pubsub    *redisrepo.ShowsPubSub
	publisher events.Publisher
	logger    *slog.Logger
}

// New builds a Notifier. Any dependency may be nil and is then skipped.
func New(
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowsPubSub,
	publisher events.Publisher,
	logger *slog.Logger,
) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		cache:     cache,
		pubsub:    pubsub,
		publisher: publisher,
		logger:    logger,
	}
}

func (n *Notifier) ShowChanged(ctx context.Context, showIDs ...int64) {
	if n == nil {
		return
	}

	for _, id := range showIDs {
		if n.cache != nil {
			if err := n.cache.InvalidateShow(ctx, id); err != nil {
				n.logger.Warn("cache invalidation failed", slog.Int64("show_id", id), slog.String("err", err.Error()))
			}
		}

		if n.pubsub != nil {
			if err := n.pubsub.PublishShowChanged(ctx, id); err != nil {
				n.logger.Warn("show change publish failed", slog.Int64("show_id", id), slog.String("err", err.Error()))
			}
		}
	}
}

func (n *Notifier) Publish(ctx context.Context, typ string, showID int64, data any) {
	if n == nil || n.publisher == nil {
		return
	}

	env, err := events.NewEnvelope(typ, showID, data)
	if err == nil {
		err = n.publisher.Publish(ctx, env)
	}
	if err != nil {
		n.logger.Warn("domain event dropped", slog.String("type", typ), slog.String("err", err.Error()))
	}
}
