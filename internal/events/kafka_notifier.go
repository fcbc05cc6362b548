package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/kafka"
)

// EventPublisher is the part of kafka.Producer the notifier needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// BookingEvent is the payload of every booking.* CloudEvent. One event is emitted per
// recipient.
type BookingEvent struct {
	BookingID          uuid.UUID  `json:"booking_id"`
	SlotID             uuid.UUID  `json:"slot_id"`
	RecipientID        uuid.UUID  `json:"recipient_id"`
	RecipientRole      string     `json:"recipient_role"`
	RecipientName      string     `json:"recipient_name"`
	RecipientContact   string     `json:"recipient_contact"`
	RequesterID        uuid.UUID  `json:"requester_id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	CounterpartName    string     `json:"counterpart_name"`
	Start              time.Time  `json:"start"`
	End                time.Time  `json:"end"`
	Status             string     `json:"status"`
	MeetingReference   string     `json:"meeting_reference"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at"`
	ScheduledFor       *time.Time `json:"scheduled_for,omitempty"`
}

var eventTypes = map[booking.NotificationKind]string{
	booking.NotifyBooked:               BookingBooked,
	booking.NotifyCancelledByProvider:  BookingCancelledByProvider,
	booking.NotifyCancelledByRequester: BookingCancelledByRequester,
	booking.NotifyReminder:             BookingReminder,
}

// KafkaNotifier publishes notifications as CloudEvents on the booking topic. A circuit
// breaker stops hammering the brokers while they are down.
type KafkaNotifier struct {
	publisher EventPublisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *zap.Logger
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(publisher EventPublisher, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "kafka-notifier",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		logger: logger,
	}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

// Notify publishes one event for the notification's recipient.
func (n *KafkaNotifier) Notify(ctx context.Context, note booking.Notification) error {
	eventType, ok := eventTypes[note.Kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", note.Kind)
	}

	event, err := kafka.NewCloudEvent(EventSource, eventType, toBookingEvent(note))
	if err != nil {
		return err
	}
	event.Subject = note.Booking.ID().String()

	_, err = n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.publisher.PublishEvent(ctx, TopicBookingEvents, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("kafka publishing suspended: %w", err)
	}
	return err
}

func toBookingEvent(note booking.Notification) BookingEvent {
	b := note.Booking
	counterpart := b.Provider().Name
	if note.RecipientRole == participant.RoleProvider {
		counterpart = b.Requester().Name
	}

	evt := BookingEvent{
		BookingID:          b.ID(),
		SlotID:             b.SlotID(),
		RecipientID:        note.Recipient.ID,
		RecipientRole:      string(note.RecipientRole),
		RecipientName:      note.Recipient.Name,
		RecipientContact:   note.Recipient.Contact,
		RequesterID:        b.Requester().ID,
		ProviderID:         b.Provider().ID,
		CounterpartName:    counterpart,
		Start:              b.Range().Start(),
		End:                b.Range().End(),
		Status:             string(b.Status()),
		MeetingReference:   b.MeetingReference(),
		CancellationReason: b.CancellationReason(),
		OccurredAt:         b.UpdatedAt(),
	}
	if by := b.CancelledBy(); by != nil {
		evt.CancelledBy = string(*by)
	}
	if note.Kind == booking.NotifyReminder {
		start := b.Range().Start()
		evt.ScheduledFor = &start
	}
	return evt
}
