package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// BookingRepository implements booking.BookingRepository.
type BookingRepository struct {
	access
}

func (r *BookingRepository) Insert(ctx context.Context, b *booking.Booking) error {
	return r.write(func(st *state) error {
		if _, exists := st.bookings[b.ID()]; exists {
			return domain.NewConflictError("booking already exists")
		}
		st.bookings[b.ID()] = toBookingRow(b)
		return nil
	})
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.read(func(st *state) error {
		row, ok := st.bookings[id]
		if !ok {
			return booking.ErrBookingNotFound
		}
		out = toBookingDomain(row)
		return nil
	})
	return out, err
}

func (r *BookingRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID, role participant.Role) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.read(func(st *state) error {
		for _, row := range st.bookings {
			id := row.Requester.ID
			if role == participant.RoleProvider {
				id = row.Provider.ID
			}
			if id == participantID {
				out = append(out, toBookingDomain(row))
			}
		}
		return nil
	})
	sortByStart(out)
	return out, err
}

func (r *BookingRepository) TryTransitionStatus(ctx context.Context, id uuid.UUID, expected, next booking.BookingStatus, meta booking.TransitionMeta, now time.Time) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.write(func(st *state) error {
		row, ok := st.bookings[id]
		if !ok {
			return booking.ErrBookingNotFound
		}
		b := toBookingDomain(row)
		if err := b.TransitionFrom(expected, next, meta, now); err != nil {
			return err
		}
		st.bookings[id] = toBookingRow(b)
		out = b
		return nil
	})
	return out, err
}

func (r *BookingRepository) ListConfirmedEndedBefore(ctx context.Context, t time.Time, limit int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.read(func(st *state) error {
		for _, row := range st.bookings {
			if row.Status == string(booking.StatusConfirmed) && !row.End.After(t) {
				out = append(out, toBookingDomain(row))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range().End().Before(out[j].Range().End())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[booking.BookingStatus]int64, error) {
	counts := make(map[booking.BookingStatus]int64)
	err := r.read(func(st *state) error {
		for _, row := range st.bookings {
			counts[booking.BookingStatus(row.Status)]++
		}
		return nil
	})
	return counts, err
}

func sortByStart(bs []*booking.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		si, sj := bs[i].Range().Start(), bs[j].Range().Start()
		if si.Equal(sj) {
			return bs[i].CreatedAt().Before(bs[j].CreatedAt())
		}
		return si.Before(sj)
	})
}

func toBookingRow(b *booking.Booking) bookingRow {
	row := bookingRow{
		ID:                 b.ID(),
		Requester:          b.Requester(),
		Provider:           b.Provider(),
		SlotID:             b.SlotID(),
		Start:              b.Range().Start(),
		End:                b.Range().End(),
		Status:             string(b.Status()),
		MeetingReference:   b.MeetingReference(),
		CancellationReason: b.CancellationReason(),
		Version:            b.Version(),
		CreatedAt:          b.CreatedAt(),
		UpdatedAt:          b.UpdatedAt(),
	}
	if by := b.CancelledBy(); by != nil {
		row.CancelledBy = string(*by)
	}
	return row
}

func toBookingDomain(row bookingRow) *booking.Booking {
	var cancelledBy *participant.Role
	if row.CancelledBy != "" {
		r := participant.Role(row.CancelledBy)
		cancelledBy = &r
	}
	return booking.ReconstructBooking(
		row.ID,
		row.Requester,
		row.Provider,
		row.SlotID,
		timerange.MustNew(row.Start, row.End),
		booking.BookingStatus(row.Status),
		row.MeetingReference,
		row.CancellationReason,
		cancelledBy,
		row.Version,
		row.CreatedAt,
		row.UpdatedAt,
	)
}

var _ booking.BookingRepository = (*BookingRepository)(nil)
