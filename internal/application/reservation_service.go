package application

import (
	"context"
	"errors"
	"fmt"

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

// ReservationService turns a free slot into a confirmed booking.
type ReservationService struct {
	uow      schedule.UnitOfWork
	meetings booking.MeetingReferenceGenerator
	after    PostCommit
	clock    timerange.Clock
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewReservationService creates a ReservationService. metrics may be nil.
func NewReservationService(
	uow schedule.UnitOfWork,
	meetings booking.MeetingReferenceGenerator,
	after PostCommit,
	clock timerange.Clock,
	m *metrics.Collector,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		uow:      uow,
		meetings: meetings,
		after:    after.withDefaults(),
		clock:    clock,
		metrics:  m,
		logger:   logger,
	}
}

// Reserve holds the slot for the requester and records the booking in one transaction.
// Of any number of concurrent calls for the same free slot exactly one succeeds; the
// others fail with slot.ErrSlotAlreadyBooked and leave nothing behind.
func (s *ReservationService) Reserve(ctx context.Context, requester participant.Snapshot, slotID uuid.UUID, req ReserveRequest) (_ *BookingDTO, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Reserve", trace.WithAttributes(
		attribute.String("slot.id", slotID.String()),
		attribute.String("requester.id", requester.ID.String()),
	))
	defer func() {
		if s.metrics != nil {
			s.metrics.ReservationsTotal.WithLabelValues(metrics.Outcome(err, errorCode)).Inc()
		}
		endSpan(span, err)
	}()

	if requester.ID == uuid.Nil {
		return nil, domain.NewValidationError("requester ID is required")
	}
	if slotID == uuid.Nil {
		return nil, domain.NewValidationError("slot ID is required")
	}
	expected, err := timerange.New(req.ExpectedStart, req.ExpectedEnd)
	if err != nil {
		return nil, err
	}
	meetingRef, err := s.meetings.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate meeting reference: %w", err)
	}

	var created *booking.Booking
	err = retryUnavailable(ctx, s.metrics, s.logger, func() error {
		created = nil
		return s.uow.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
			sl, err := repos.Slots.FindByID(ctx, slotID)
			if err != nil {
				return err
			}
			if err := sl.CheckReservable(expected); err != nil {
				return err
			}
			if req.ExpectedProviderID != nil && *req.ExpectedProviderID != sl.ProviderID() {
				return slot.ErrSlotChanged
			}

			holder, err := resolveSnapshot(ctx, repos.Participants, requester)
			if err != nil {
				return err
			}
			provider, err := resolveSnapshot(ctx, repos.Participants, participant.Snapshot{ID: sl.ProviderID()})
			if err != nil {
				return err
			}
			now := s.clock.Now()

			if _, err := repos.Slots.TryTransitionToHeld(ctx, slotID, expected, holder, now); err != nil {
				return err
			}
			bk, err := booking.NewBooking(uuid.New(), slotID, sl.Range(), holder, provider, meetingRef, now)
			if err != nil {
				return err
			}
			if err := repos.Bookings.Insert(ctx, bk); err != nil {
				return err
			}
			created = bk
			return nil
		})
	})
	if err != nil {
		if domain.KindOf(err) == "" {
			s.logger.Error("reservation failed",
				zap.String("slot_id", slotID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("slot reserved",
		zap.String("booking_id", created.ID().String()),
		zap.String("slot_id", slotID.String()),
		zap.String("requester_id", requester.ID.String()),
		zap.String("provider_id", created.Provider().ID.String()),
	)

	s.after.Dispatcher.Dispatch(booking.NotificationsFor(booking.NotifyBooked, created)...)
	s.after.Background.Go(ctx, s.logger, "failed to schedule reminder", created.ID(), func(ctx context.Context) error {
		return s.after.Reminders.ScheduleReminder(ctx, created)
	})

	dto := toBookingDTO(created)
	return &dto, nil
}

// resolveSnapshot fills in missing display data from the directory. A participant with no
// directory entry keeps whatever the caller supplied.
func resolveSnapshot(ctx context.Context, directory participant.Repository, snap participant.Snapshot) (participant.Snapshot, error) {
	if snap.Name != "" && snap.Contact != "" {
		return snap, nil
	}
	p, err := directory.FindByID(ctx, snap.ID)
	if errors.Is(err, participant.ErrParticipantNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}
	if snap.Name == "" {
		snap.Name = p.DisplayName()
	}
	if snap.Contact == "" {
		snap.Contact = p.Contact()
	}
	return snap, nil
}
