package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
)

// BookingRepository defines the persistence contract for booking aggregates. Bookings are
// never deleted.
type BookingRepository interface {
	// Insert persists a new booking with its pre-assigned id.
	Insert(ctx context.Context, booking *Booking) error

	// FindByID returns ErrBookingNotFound when the booking does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListByParticipant returns every booking where participantID is on the given side,
	// ordered by start ascending.
	ListByParticipant(ctx context.Context, participantID uuid.UUID, role participant.Role) ([]*Booking, error)

	// TryTransitionStatus applies expected -> next atomically. It fails with
	// ErrUnexpectedStatus when the stored status differs from expected.
	TryTransitionStatus(ctx context.Context, id uuid.UUID, expected, next BookingStatus, meta TransitionMeta, now time.Time) (*Booking, error)

	// ListConfirmedEndedBefore returns up to limit confirmed bookings whose range ended at
	// or before t, oldest first.
	ListConfirmedEndedBefore(ctx context.Context, t time.Time, limit int) ([]*Booking, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[BookingStatus]int64, error)
}
