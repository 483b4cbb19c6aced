package uow

import (
	"context"
	"time"

	"github.com/studioline/showtix/internal/repository/postgres"
)

const (
	maxAttempts  = 3
	retryBackoff = 20 * time.Millisecond
)

// AfterCommit runs once the transaction it was registered in has committed.
type AfterCommit func(ctx context.Context)

type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction and then the hooks fn registered through
// after. Deadlocks and serialization failures rerun fn from scratch, so fn
// must not have side effects outside tx other than registering hooks.
//
// Hooks get a context detached from cancellation: cache invalidation and
// event publishing still happen when the client has gone away.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var (
		hooks []AfterCommit
		err   error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		hooks = hooks[:0]

		err = u.store.RunTx(ctx, nil, func(ctx context.Context, tx postgres.DB) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil || !postgres.IsRetryable(err) || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	if err != nil {
		return err
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range hooks {
		h(hookCtx)
	}

	return nil
}
