package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/pkg/metrics"
)

const deliveryTimeout = 5 * time.Second

// Notifier delivers one notification to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n booking.Notification) error
}

// Dispatcher fans committed notifications out to every notifier from a bounded queue.
// Dispatch never blocks: when the queue is full the notification is dropped and counted.
// Delivery failures are logged and counted but not retried.
type Dispatcher struct {
	queue     chan booking.Notification
	notifiers []Notifier
	metrics   *metrics.Collector
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of the given size. metrics may be nil.
func NewDispatcher(buffer, workers int, m *metrics.Collector, logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		queue:     make(chan booking.Notification, buffer),
		notifiers: notifiers,
		metrics:   m,
		logger:    logger,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

// Dispatch enqueues notifications for delivery.
func (d *Dispatcher) Dispatch(notifications ...booking.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, n := range notifications {
		if d.closed {
			d.drop(n, "dispatcher closed")
			continue
		}
		select {
		case d.queue <- n:
		default:
			d.drop(n, "queue full")
		}
	}
}

func (d *Dispatcher) drop(n booking.Notification, why string) {
	if d.metrics != nil {
		d.metrics.NotificationDropped.Inc()
	}
	d.logger.Warn("notification dropped",
		zap.String("reason", why),
		zap.String("kind", string(n.Kind)),
		zap.String("booking_id", n.Booking.ID().String()),
		zap.String("recipient_id", n.Recipient.ID.String()),
	)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n booking.Notification) {
	for _, notifier := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := notifier.Notify(ctx, n)
		cancel()

		result := "delivered"
		if err != nil {
			result = "failed"
			d.logger.Error("notification delivery failed",
				zap.String("notifier", notifier.Name()),
				zap.String("kind", string(n.Kind)),
				zap.String("booking_id", n.Booking.ID().String()),
				zap.String("recipient_id", n.Recipient.ID.String()),
				zap.Error(err),
			)
		}
		if d.metrics != nil {
			d.metrics.NotificationsTotal.WithLabelValues(string(n.Kind), result).Inc()
		}
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// LogNotifier writes notifications to the service log. It is always registered so every
// notification leaves a trace even when Kafka is disabled.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, note booking.Notification) error {
	n.logger.Info("notification",
		zap.String("kind", string(note.Kind)),
		zap.String("booking_id", note.Booking.ID().String()),
		zap.String("recipient_id", note.Recipient.ID.String()),
		zap.String("recipient_role", string(note.RecipientRole)),
		zap.Time("start", note.Booking.Range().Start()),
	)
	return nil
}
