package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
)

const postCommitTimeout = 3 * time.Second

// NotificationDispatcher receives notifications after the transaction that produced them
// has committed. Dispatch must not block on delivery.
type NotificationDispatcher interface {
	Dispatch(notifications ...booking.Notification)
}

// ReminderScheduler schedules and withdraws pre-session reminders.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, b *booking.Booking) error
	CancelReminder(ctx context.Context, bookingID uuid.UUID) error
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(...booking.Notification) {}

type noopReminders struct{}

func (noopReminders) ScheduleReminder(context.Context, *booking.Booking) error { return nil }
func (noopReminders) CancelReminder(context.Context, uuid.UUID) error          { return nil }

// NoopDispatcher drops every notification.
func NoopDispatcher() NotificationDispatcher { return noopDispatcher{} }

// NoopReminders never schedules anything.
func NoopReminders() ReminderScheduler { return noopReminders{} }

// Background runs post-commit side effects after the response has been produced. Each
// task gets a context detached from the request and bounded by postCommitTimeout.
type Background struct {
	wg sync.WaitGroup
}

// NewBackground creates a Background.
func NewBackground() *Background { return &Background{} }

// Go starts fn. Failures are logged with msg and never reach the caller.
func (b *Background) Go(ctx context.Context, log *zap.Logger, msg string, bookingID uuid.UUID, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, postCommitTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Error(msg, zap.String("booking_id", bookingID.String()), zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has finished.
func (b *Background) Wait() { b.wg.Wait() }

// PostCommit groups the side effects run after a reservation or cancellation commits.
// Nil fields fall back to no-ops and a private Background.
type PostCommit struct {
	Dispatcher NotificationDispatcher
	Reminders  ReminderScheduler
	Background *Background
}

func (p PostCommit) withDefaults() PostCommit {
	if p.Dispatcher == nil {
		p.Dispatcher = NoopDispatcher()
	}
	if p.Reminders == nil {
		p.Reminders = NoopReminders()
	}
	if p.Background == nil {
		p.Background = NewBackground()
	}
	return p
}
