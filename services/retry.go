package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

const (
	maxAttempts = 5
	retryStep   = 15 * time.Millisecond
)

// withRetry runs op again when it fails with a transient conflict (deadlock,
// serialization failure, busy database or a lost compare-and-set). Exhausted
// retries are reported as ErrConcurrencyConflict.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil || !isRetryable(err) {
			return err
		}
		utils.InfoLogger.WithField("attempt", attempt).Debugf("retrying after conflict: %v", err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryStep):
		}
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrConcurrencyConflict) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// ER_LOCK_DEADLOCK, ER_LOCK_WAIT_TIMEOUT
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
