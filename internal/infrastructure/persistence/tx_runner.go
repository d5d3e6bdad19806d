package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/retailcore/backend/internal/domain/shared"
)

// PostgreSQL error codes treated as transient
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// uniqueReturnNumberIndex backs the daily return-number sequence. Concurrent
// creators can read the same MAX and insert the same number; the loser's
// unique violation is retried so the next attempt re-reads the sequence.
const uniqueReturnNumberIndex = "idx_merchandise_returns_return_number"

// TxRunner executes units of work inside a database transaction, retrying
// serialization failures and deadlocks with a linear backoff. It is the only
// place a transaction is opened; repositories always receive a handle.
type TxRunner struct {
	db         *gorm.DB
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewTxRunner creates a new TxRunner. maxRetries is the number of retries
// after the first attempt; baseDelay scales linearly with the attempt number.
func NewTxRunner(db *gorm.DB, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *TxRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 50 * time.Millisecond
	}
	return &TxRunner{db: db, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// RunInTransaction opens a transaction, invokes fn with its handle and
// commits on success. On a transient conflict the transaction is rolled
// back and retried; any other error propagates immediately after rollback.
// Once the retry budget is exhausted the transient error is surfaced so the
// caller can decide whether to resubmit.
func (r *TxRunner) RunInTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		err := r.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		lastErr = shared.NewTransientStoreError("transaction conflicted with a concurrent writer", err)
		if attempt > r.maxRetries {
			break
		}

		delay := r.baseDelay * time.Duration(attempt)
		r.logger.Warn("retrying conflicted transaction",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// IsTransient reports whether err is safe to retry after rollback:
// serialization failures, deadlocks, and return-number collisions between
// concurrent creators.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	case pgUniqueViolation:
		return pqErr.Constraint == uniqueReturnNumberIndex
	}
	return false
}
