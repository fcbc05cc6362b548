package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/pkg/domain"
)

// DefaultLockTimeout bounds how long a unit of work waits for a row lock.
const DefaultLockTimeout = 2 * time.Second

// GormUnitOfWork runs a unit of work in one Postgres transaction.
type GormUnitOfWork struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormUnitOfWork creates a GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout sets the row lock wait; zero waits without limit.
func (u *GormUnitOfWork) WithLockTimeout(d time.Duration) *GormUnitOfWork {
	u.lockTimeout = d
	return u
}

// Execute implements schedule.UnitOfWork. A transient failure is only marked retryable
// when it happened before the transaction issued any write, or when the server rolled
// the whole transaction back; other commit failures never are.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos schedule.Repositories) error) error {
	state := &txState{}
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return translateError(err, "set lock timeout", state)
			}
		}
		return fn(ctx, schedule.Repositories{
			Slots:        &GormSlotRepository{db: tx, root: u.db, tx: state},
			Bookings:     &GormBookingRepository{db: tx, tx: state},
			Participants: &GormParticipantRepository{db: tx, tx: state},
		})
	})
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		if de.Retryable && state.hasWritten() && !rolledBackByServer(de.Err) {
			return domain.NewUnavailableError(de.Err, false)
		}
		return err
	}
	return translateError(err, "commit transaction", state)
}

var _ schedule.UnitOfWork = (*GormUnitOfWork)(nil)
