package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// Booking is the aggregate root for the booking domain. Participant display data is a
// snapshot taken at booking time and the range is copied from the slot, so both stay
// accurate after the source records change or disappear.
type Booking struct {
	id               uuid.UUID
	requester        participant.Snapshot
	provider         participant.Snapshot
	slotID           uuid.UUID
	rng              timerange.TimeRange
	status           BookingStatus
	meetingReference string

	cancellationReason string
	cancelledBy        *participant.Role

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a confirmed booking. The id is assigned by the caller; the meeting
// reference is generated independently of it.
func NewBooking(
	id uuid.UUID,
	slotID uuid.UUID,
	rng timerange.TimeRange,
	requester participant.Snapshot,
	provider participant.Snapshot,
	meetingReference string,
	now time.Time,
) (*Booking, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if slotID == uuid.Nil {
		return nil, domain.NewValidationError("slot ID is required")
	}
	if requester.ID == uuid.Nil {
		return nil, domain.NewValidationError("requester ID is required")
	}
	if provider.ID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if rng.IsZero() {
		return nil, timerange.ErrInvalidTimeRange
	}
	if meetingReference == "" {
		return nil, domain.NewValidationError("meeting reference is required")
	}

	return &Booking{
		id:               id,
		requester:        requester,
		provider:         provider,
		slotID:           slotID,
		rng:              rng,
		status:           StatusConfirmed,
		meetingReference: meetingReference,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	requester participant.Snapshot,
	provider participant.Snapshot,
	slotID uuid.UUID,
	rng timerange.TimeRange,
	status BookingStatus,
	meetingReference string,
	cancellationReason string,
	cancelledBy *participant.Role,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:                 id,
		requester:          requester,
		provider:           provider,
		slotID:             slotID,
		rng:                rng,
		status:             status,
		meetingReference:   meetingReference,
		cancellationReason: cancellationReason,
		cancelledBy:        cancelledBy,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// Requester returns the requester snapshot captured at booking time.
func (b *Booking) Requester() participant.Snapshot { return b.requester }

// Provider returns the provider snapshot captured at booking time.
func (b *Booking) Provider() participant.Snapshot { return b.provider }

// SlotID returns the slot this booking was made from. The slot may no longer exist.
func (b *Booking) SlotID() uuid.UUID { return b.slotID }

// Range returns the booked time range.
func (b *Booking) Range() timerange.TimeRange { return b.rng }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// MeetingReference returns the join link generated at creation.
func (b *Booking) MeetingReference() string { return b.meetingReference }

// CancellationReason returns the reason recorded on cancellation.
func (b *Booking) CancellationReason() string { return b.cancellationReason }

// CancelledBy returns the cancelling side, or nil if the booking was not cancelled.
func (b *Booking) CancelledBy() *participant.Role { return b.cancelledBy }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// IsParticipant reports whether id is the requester or the provider.
func (b *Booking) IsParticipant(id uuid.UUID) bool {
	return b.requester.ID == id || b.provider.ID == id
}

// ParticipantID returns the id on the given side of the booking.
func (b *Booking) ParticipantID(role participant.Role) uuid.UUID {
	if role == participant.RoleProvider {
		return b.provider.ID
	}
	return b.requester.ID
}

// TransitionMeta carries the audit fields recorded with a status change.
type TransitionMeta struct {
	Reason      string
	CancelledBy *participant.Role
}

// CancelledStatusFor returns the cancellation status for the acting side.
func CancelledStatusFor(actor participant.Role) BookingStatus {
	if actor == participant.RoleProvider {
		return StatusCancelledByProvider
	}
	return StatusCancelledByRequester
}

// TransitionFrom moves the booking from expected to next. It fails with
// ErrUnexpectedStatus when the current status is not expected, and with an invalid state
// error when the state machine forbids the move.
func (b *Booking) TransitionFrom(expected, next BookingStatus, meta TransitionMeta, now time.Time) error {
	if b.status != expected {
		return ErrUnexpectedStatus.WithMessage(
			fmt.Sprintf("unexpected status: expected %s, found %s", expected, b.status))
	}
	if !b.status.CanTransitionTo(next) {
		return domain.NewInvalidStateError(string(b.status), string(next))
	}

	b.status = next
	if next.IsCancelled() {
		b.cancellationReason = meta.Reason
		b.cancelledBy = meta.CancelledBy
	}
	b.version++
	b.updatedAt = now
	return nil
}
