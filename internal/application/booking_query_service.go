package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// Scope selects which side of "now" a booking listing covers.
type Scope string

const (
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
	ScopeAll      Scope = "all"
)

// ParseScope parses a scope, defaulting to ScopeAll when empty.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeUpcoming, ScopePast, ScopeAll:
		return Scope(s), nil
	}
	return "", domain.NewValidationError(fmt.Sprintf("invalid scope: %s", s))
}

// ListBookingsQuery filters a participant's bookings.
type ListBookingsQuery struct {
	Scope  Scope
	Status booking.BookingStatus
	Page   int
	Limit  int
}

// BookingQueryService answers read-only questions about bookings.
type BookingQueryService struct {
	bookings booking.BookingRepository
	clock    timerange.Clock
	logger   *zap.Logger
}

// NewBookingQueryService creates a BookingQueryService.
func NewBookingQueryService(bookings booking.BookingRepository, clock timerange.Clock, logger *zap.Logger) *BookingQueryService {
	return &BookingQueryService{bookings: bookings, clock: clock, logger: logger}
}

// ListForParticipant returns the caller's bookings on the given side. Upcoming sessions
// (start after now) come earliest first; past sessions (start at or before now) most
// recent first.
func (s *BookingQueryService) ListForParticipant(ctx context.Context, participantID uuid.UUID, role participant.Role, q ListBookingsQuery) (*domain.PaginatedResult[BookingDTO], error) {
	if !role.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid participant role: %s", role))
	}
	all, err := s.bookings.ListByParticipant(ctx, participantID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	now := s.clock.Now()
	filtered := make([]*booking.Booking, 0, len(all))
	for _, b := range all {
		if q.Status != "" && b.Status() != q.Status {
			continue
		}
		started := b.Range().HasStarted(now)
		switch q.Scope {
		case ScopeUpcoming:
			if started {
				continue
			}
		case ScopePast:
			if !started {
				continue
			}
		}
		filtered = append(filtered, b)
	}
	if q.Scope == ScopePast {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Range().Start().After(filtered[j].Range().Start())
		})
	}

	page := domain.Paginate(filtered, q.Page, q.Limit)
	dtos := make([]BookingDTO, len(page))
	for i, b := range page {
		dtos[i] = toBookingDTO(b)
	}
	result := domain.NewPaginatedResult(dtos, int64(len(filtered)), q.Page, q.Limit)
	return &result, nil
}

// GetBooking returns a booking to one of its participants, or to an admin.
func (s *BookingQueryService) GetBooking(ctx context.Context, callerID, bookingID uuid.UUID, isAdmin bool) (*BookingDTO, error) {
	b, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !b.IsParticipant(callerID) {
		return nil, booking.ErrNotAuthorized
	}
	dto := toBookingDTO(b)
	return &dto, nil
}

// GetBookingStats returns booking counts by status.
func (s *BookingQueryService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	stats := &BookingStatsDTO{ByStatus: make(map[string]int64, len(booking.AllStatuses()))}
	for _, st := range booking.AllStatuses() {
		stats.ByStatus[string(st)] = counts[st]
		stats.TotalBookings += counts[st]
	}
	return stats, nil
}
