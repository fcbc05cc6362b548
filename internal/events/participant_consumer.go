package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/domain"
	"github.com/educonnect/service-booking/pkg/kafka"
)

// ProfileUpdatedEvent is published by the identity service when a user's profile changes.
type ProfileUpdatedEvent struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Role          string    `json:"role"`
	DisplayName   string    `json:"display_name"`
	Contact       string    `json:"contact"`
}

// ProfileSink is the part of ParticipantService the consumer drives.
type ProfileSink interface {
	EnsureProfile(ctx context.Context, id uuid.UUID, role participant.Role, req application.EnsureProfileRequest) (*application.ParticipantDTO, error)
}

// ParticipantEventConsumer keeps the participant directory in sync with profile events.
type ParticipantEventConsumer struct {
	consumer *kafka.Consumer
	profiles ProfileSink
	logger   *zap.Logger
}

// NewParticipantEventConsumer creates a new ParticipantEventConsumer.
func NewParticipantEventConsumer(
	brokers []string,
	groupID string,
	profiles ProfileSink,
	logger *zap.Logger,
) *ParticipantEventConsumer {
	return &ParticipantEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, TopicParticipantEvents, logger),
		profiles: profiles,
		logger:   logger,
	}
}

// Start begins consuming participant events. This blocks until the context is cancelled.
func (c *ParticipantEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ParticipantEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ParticipantEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from participant topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed messages are never retried
	}

	switch cloudEvent.Type {
	case ParticipantProfileUpdated:
		return c.handleProfileUpdated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled participant event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *ParticipantEventConsumer) handleProfileUpdated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt ProfileUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse ProfileUpdatedEvent data", zap.Error(err))
		return nil
	}

	role, err := participant.ParseRole(evt.Role)
	if err != nil {
		c.logger.Debug("ignoring profile event for non-participant role",
			zap.String("participant_id", evt.ParticipantID.String()),
			zap.String("role", evt.Role),
		)
		return nil
	}

	_, err = c.profiles.EnsureProfile(ctx, evt.ParticipantID, role, application.EnsureProfileRequest{
		DisplayName: evt.DisplayName,
		Contact:     evt.Contact,
	})
	if err != nil {
		// Only transient failures are worth redelivering.
		if domain.KindOf(err) == domain.KindUnavailable {
			return err
		}
		c.logger.Warn("profile event rejected",
			zap.String("participant_id", evt.ParticipantID.String()),
			zap.Error(err),
		)
		return nil
	}

	c.logger.Info("participant profile synced",
		zap.String("participant_id", evt.ParticipantID.String()),
	)
	return nil
}
