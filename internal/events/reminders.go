package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/config"
)

// TypeBookingReminder is the asynq task type for pre-session reminders.
const TypeBookingReminder = "booking:reminder"

const reminderQueue = "reminders"

// ReminderPayload is the asynq task body. The booking is re-read when the task fires so a
// cancellation that raced the delete still suppresses the reminder.
type ReminderPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskDeleter interface {
	DeleteTask(queue, id string) error
}

// RedisOpt converts the service's Redis settings into asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// ReminderScheduler schedules one reminder task per booking, keyed by the booking id so
// it can be withdrawn on cancellation.
type ReminderScheduler struct {
	enqueuer taskEnqueuer
	deleter  taskDeleter
	closers  []func() error
	lead     time.Duration
	clock    timerange.Clock
	logger   *zap.Logger
}

// NewReminderScheduler connects to Redis through asynq.
func NewReminderScheduler(opt asynq.RedisClientOpt, lead time.Duration, clock timerange.Clock, logger *zap.Logger) *ReminderScheduler {
	client := asynq.NewClient(opt)
	inspector := asynq.NewInspector(opt)
	s := newReminderScheduler(client, inspector, lead, clock, logger)
	s.closers = []func() error{client.Close, inspector.Close}
	return s
}

func newReminderScheduler(enq taskEnqueuer, del taskDeleter, lead time.Duration, clock timerange.Clock, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{enqueuer: enq, deleter: del, lead: lead, clock: clock, logger: logger}
}

// ScheduleReminder enqueues a reminder lead before the session starts. Sessions that start
// sooner than that get no reminder.
func (s *ReminderScheduler) ScheduleReminder(ctx context.Context, b *booking.Booking) error {
	fireAt := b.Range().Start().Add(-s.lead)
	if !fireAt.After(s.clock.Now()) {
		s.logger.Debug("session starts too soon for a reminder",
			zap.String("booking_id", b.ID().String()),
		)
		return nil
	}

	payload, err := json.Marshal(ReminderPayload{BookingID: b.ID()})
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}
	_, err = s.enqueuer.EnqueueContext(ctx, asynq.NewTask(TypeBookingReminder, payload),
		asynq.ProcessAt(fireAt),
		asynq.TaskID(b.ID().String()),
		asynq.Queue(reminderQueue),
		asynq.MaxRetry(3),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	s.logger.Debug("reminder scheduled",
		zap.String("booking_id", b.ID().String()),
		zap.Time("fire_at", fireAt),
	)
	return nil
}

// CancelReminder deletes the pending reminder for a booking, if any.
func (s *ReminderScheduler) CancelReminder(_ context.Context, bookingID uuid.UUID) error {
	err := s.deleter.DeleteTask(reminderQueue, bookingID.String())
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("failed to delete reminder: %w", err)
}

// Close releases the Redis connections.
func (s *ReminderScheduler) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

var _ application.ReminderScheduler = (*ReminderScheduler)(nil)

// ReminderWorker processes reminder tasks and hands them to the dispatcher while the
// booking is still confirmed.
type ReminderWorker struct {
	bookings   booking.BookingRepository
	dispatcher application.NotificationDispatcher
	server     *asynq.Server
	logger     *zap.Logger
}

// NewReminderWorker creates a ReminderWorker on the reminders queue.
func NewReminderWorker(opt asynq.RedisClientOpt, bookings booking.BookingRepository, dispatcher application.NotificationDispatcher, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{
		bookings:   bookings,
		dispatcher: dispatcher,
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{reminderQueue: 1},
		}),
		logger: logger,
	}
}

// Start begins processing tasks in the background.
func (w *ReminderWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeBookingReminder, w)
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start reminder worker: %w", err)
	}
	w.logger.Info("reminder worker started")
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *ReminderWorker) Shutdown() {
	w.server.Shutdown()
	w.logger.Info("reminder worker stopped")
}

// ProcessTask implements asynq.Handler.
func (w *ReminderWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		w.logger.Error("invalid reminder payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	b, err := w.bookings.FindByID(ctx, p.BookingID)
	if errors.Is(err, booking.ErrBookingNotFound) {
		w.logger.Warn("reminder for unknown booking", zap.String("booking_id", p.BookingID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status() != booking.StatusConfirmed {
		w.logger.Debug("skipping reminder for inactive booking",
			zap.String("booking_id", b.ID().String()),
			zap.String("status", string(b.Status())),
		)
		return nil
	}

	w.dispatcher.Dispatch(booking.NotificationsFor(booking.NotifyReminder, b)...)
	return nil
}
