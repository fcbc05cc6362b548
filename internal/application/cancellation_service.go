package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
	"github.com/educonnect/service-booking/pkg/metrics"
)

// CancellationService cancels confirmed bookings on behalf of either side and returns the
// slot to the pool.
type CancellationService struct {
	uow       schedule.UnitOfWork
	provider  booking.CancellationPolicy
	requester booking.CancellationPolicy
	after     PostCommit
	clock     timerange.Clock
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewCancellationService creates a CancellationService with one policy per side.
func NewCancellationService(
	uow schedule.UnitOfWork,
	providerPolicy, requesterPolicy booking.CancellationPolicy,
	after PostCommit,
	clock timerange.Clock,
	m *metrics.Collector,
	logger *zap.Logger,
) *CancellationService {
	return &CancellationService{
		uow:       uow,
		provider:  providerPolicy,
		requester: requesterPolicy,
		after:     after.withDefaults(),
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// CancelByProvider cancels a booking as its provider. A reason is required.
func (s *CancellationService) CancelByProvider(ctx context.Context, providerID, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	return s.cancel(ctx, participant.RoleProvider, s.provider, providerID, bookingID, reason)
}

// CancelByRequester cancels a booking as its requester.
func (s *CancellationService) CancelByRequester(ctx context.Context, requesterID, bookingID uuid.UUID, reason string) (*BookingDTO, error) {
	return s.cancel(ctx, participant.RoleRequester, s.requester, requesterID, bookingID, reason)
}

func (s *CancellationService) cancel(
	ctx context.Context,
	actor participant.Role,
	policy booking.CancellationPolicy,
	actorID, bookingID uuid.UUID,
	reason string,
) (_ *BookingDTO, err error) {
	ctx, span := tracer.Start(ctx, "CancellationService.Cancel", trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
		attribute.String("actor.role", string(actor)),
	))
	defer func() {
		if s.metrics != nil {
			s.metrics.CancellationsTotal.WithLabelValues(string(actor), metrics.Outcome(err, errorCode)).Inc()
		}
		endSpan(span, err)
	}()

	if actorID == uuid.Nil || bookingID == uuid.Nil {
		return nil, domain.NewValidationError("actor and booking IDs are required")
	}
	if err := policy.ValidateReason(reason); err != nil {
		return nil, err
	}

	var cancelled *booking.Booking
	err = retryUnavailable(ctx, s.metrics, s.logger, func() error {
		cancelled = nil
		return s.uow.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
			bk, err := repos.Bookings.FindByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if bk.ParticipantID(actor) != actorID {
				return booking.ErrNotAuthorized
			}
			if bk.Status() != booking.StatusConfirmed {
				return booking.ErrNotCancellable
			}
			now := s.clock.Now()
			if err := policy.Check(bk, reason, now); err != nil {
				return err
			}

			by := actor
			updated, err := repos.Bookings.TryTransitionStatus(ctx, bookingID,
				booking.StatusConfirmed, booking.CancelledStatusFor(actor),
				booking.TransitionMeta{Reason: reason, CancelledBy: &by}, now)
			if err != nil {
				if errors.Is(err, booking.ErrUnexpectedStatus) {
					return booking.ErrNotCancellable
				}
				return err
			}

			// The slot may have been removed out of band; the booking is still cancelled.
			if _, err := repos.Slots.TryTransitionToFree(ctx, bk.SlotID(), now); err != nil && !errors.Is(err, slot.ErrSlotNotFound) {
				return err
			}
			cancelled = updated
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("slot_id", cancelled.SlotID().String()),
		zap.String("cancelled_by", string(actor)),
	)

	s.after.Dispatcher.Dispatch(booking.NotificationsFor(booking.CancellationKind(actor), cancelled)...)
	s.after.Background.Go(ctx, s.logger, "failed to cancel reminder", bookingID, func(ctx context.Context) error {
		return s.after.Reminders.CancelReminder(ctx, bookingID)
	})

	dto := toBookingDTO(cancelled)
	return &dto, nil
}
