package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/pkg/domain"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil, "op", nil))

	err := translateError(slot.ErrSlotHeld, "op", nil)
	assert.ErrorIs(t, err, slot.ErrSlotHeld, "domain errors pass through")

	wrote := &txState{}
	wrote.markWrite()
	for _, code := range []string{pgSerializationFailure, pgDeadlockDetected} {
		aborted := translateError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: code}), "op", wrote)
		assert.Equal(t, domain.KindUnavailable, domain.KindOf(aborted), code)
		assert.True(t, domain.IsRetryable(aborted), "%s rolls the whole transaction back", code)
		assert.Equal(t, code, pgCode(aborted), "driver error stays in the chain")
	}

	canceled := translateError(context.Canceled, "op", nil)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(canceled))
	assert.False(t, domain.IsRetryable(canceled))

	plain := translateError(errors.New("syntax error"), "op", nil)
	assert.Empty(t, domain.KindOf(plain))
}

func TestPgCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})
	assert.Equal(t, pgUniqueViolation, pgCode(err))
	assert.Empty(t, pgCode(errors.New("other")))
}

func TestTxState(t *testing.T) {
	var nilState *txState
	nilState.markWrite()
	assert.False(t, nilState.hasWritten())

	s := &txState{}
	assert.False(t, s.hasWritten())
	s.markWrite()
	assert.True(t, s.hasWritten())
}

func TestRolledBackByServer(t *testing.T) {
	assert.True(t, rolledBackByServer(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, rolledBackByServer(fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgDeadlockDetected})))
	assert.False(t, rolledBackByServer(&pgconn.PgError{Code: pgLockNotAvailable}))
	assert.False(t, rolledBackByServer(errors.New("boom")))
}
