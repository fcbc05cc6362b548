package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
)

// --- Request DTOs ---

// TimeRangeRequest is a half-open [start, end) interval as sent by clients.
type TimeRangeRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// toRange validates the interval.
func (r TimeRangeRequest) toRange() (timerange.TimeRange, error) {
	return timerange.New(r.Start, r.End)
}

// CreateSlotsRequest publishes a batch of availability slots.
type CreateSlotsRequest struct {
	Ranges []TimeRangeRequest `json:"ranges" binding:"required,min=1,dive"`
}

// ReserveRequest carries the range (and optionally the provider) the requester saw when
// picking the slot. A mismatch means the slot changed under them.
type ReserveRequest struct {
	ExpectedStart      time.Time  `json:"expected_start" binding:"required"`
	ExpectedEnd        time.Time  `json:"expected_end" binding:"required"`
	ExpectedProviderID *uuid.UUID `json:"expected_provider_id"`
}

// CancelBookingRequest is the body of a cancellation.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// EnsureProfileRequest creates or updates the caller's directory entry.
type EnsureProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=200"`
	Contact     string `json:"contact" binding:"max=320"`
}

// --- Response DTOs ---

// TimeRangeDTO is the wire form of a TimeRange.
type TimeRangeDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotDTO is the response representation of an availability slot. Holder is only filled
// in for the owning provider.
type SlotDTO struct {
	ID         uuid.UUID             `json:"id"`
	ProviderID uuid.UUID             `json:"provider_id"`
	Range      TimeRangeDTO          `json:"range"`
	State      string                `json:"state"`
	Holder     *participant.Snapshot `json:"holder,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID                 uuid.UUID            `json:"id"`
	SlotID             uuid.UUID            `json:"slot_id"`
	Requester          participant.Snapshot `json:"requester"`
	Provider           participant.Snapshot `json:"provider"`
	Range              TimeRangeDTO         `json:"range"`
	Status             string               `json:"status"`
	MeetingReference   string               `json:"meeting_reference"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// ParticipantDTO is the response representation of a directory entry.
type ParticipantDTO struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	Contact     string    `json:"contact,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookingStatsDTO represents booking statistics.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// SweepResultDTO reports one completion sweep.
type SweepResultDTO struct {
	Completed int       `json:"completed"`
	Skipped   int       `json:"skipped"`
	RanAt     time.Time `json:"ran_at"`
}

// --- Mapping helpers ---

func toTimeRangeDTO(r timerange.TimeRange) TimeRangeDTO {
	return TimeRangeDTO{Start: r.Start(), End: r.End()}
}

func toSlotDTO(s *slot.Slot, viewerID uuid.UUID) SlotDTO {
	dto := SlotDTO{
		ID:         s.ID(),
		ProviderID: s.ProviderID(),
		Range:      toTimeRangeDTO(s.Range()),
		State:      string(s.State()),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
	}
	if s.IsOwnedBy(viewerID) {
		dto.Holder = s.Holder()
	}
	return dto
}

func toSlotDTOs(slots []*slot.Slot, viewerID uuid.UUID) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s, viewerID)
	}
	return dtos
}

func toBookingDTO(b *booking.Booking) BookingDTO {
	dto := BookingDTO{
		ID:                 b.ID(),
		SlotID:             b.SlotID(),
		Requester:          b.Requester(),
		Provider:           b.Provider(),
		Range:              toTimeRangeDTO(b.Range()),
		Status:             string(b.Status()),
		MeetingReference:   b.MeetingReference(),
		CancellationReason: b.CancellationReason(),
		CreatedAt:          b.CreatedAt(),
		UpdatedAt:          b.UpdatedAt(),
	}
	if by := b.CancelledBy(); by != nil {
		dto.CancelledBy = string(*by)
	}
	return dto
}

func toParticipantDTO(p *participant.Participant) ParticipantDTO {
	return ParticipantDTO{
		ID:          p.ID(),
		Role:        string(p.Role()),
		DisplayName: p.DisplayName(),
		Contact:     p.Contact(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}
