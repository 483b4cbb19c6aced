package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/studioline/showtix/internal/repository"
)

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsRetryable reports whether err aborted the transaction in a way that a
// fresh attempt may not hit again.
func IsRetryable(err error) bool {
	code := sqlState(err)
	return code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected
}

// translateDBErr maps driver errors onto repository sentinels. The original
// error stays in the chain for logging.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	switch sqlState(err) {
	case pgerrcode.UniqueViolation:
		return errors.Join(repository.ErrConflict, err)
	case pgerrcode.ForeignKeyViolation:
		// a row referencing a show or seat that does not exist
		return errors.Join(repository.ErrNotFound, err)
	}

	return err
}
