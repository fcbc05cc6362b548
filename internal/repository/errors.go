package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/educonnect/service-booking/pkg/domain"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// txState tracks whether a unit of work has issued a write, which decides whether a
// transient failure may be retried.
type txState struct {
	wrote bool
}

func (s *txState) markWrite() {
	if s != nil {
		s.wrote = true
	}
}

func (s *txState) hasWritten() bool {
	return s != nil && s.wrote
}

// rolledBackByServer reports a serialization failure or deadlock. Postgres aborts the
// whole transaction for both, so running it again is safe even after writes.
func rolledBackByServer(err error) bool {
	switch pgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}

// translateError converts a driver error into a domain error. Domain errors pass through.
// Connection-level failures are retryable only when nothing has been written yet.
func translateError(err error, op string, state *txState) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	if rolledBackByServer(err) {
		return domain.NewUnavailableError(fmt.Errorf("%s: %w", op, err), true)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewUnavailableError(fmt.Errorf("%s: %w", op, err), false)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return domain.NewUnavailableError(fmt.Errorf("%s: %w", op, err), !state.hasWritten())
	}
	if pgconn.Timeout(err) {
		return domain.NewUnavailableError(fmt.Errorf("%s: %w", op, err), false)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
