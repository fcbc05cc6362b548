package schedule

import (
	"context"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/slot"
)

// Repositories are the transaction-scoped stores handed to a unit of work. Code running
// inside a unit of work must use these and never the store's shared repositories.
type Repositories struct {
	Slots        slot.Repository
	Bookings     booking.BookingRepository
	Participants participant.Repository
}

// UnitOfWork runs fn as one atomic transaction across the slot and booking stores. If fn
// returns an error nothing it wrote is applied; otherwise all of it is committed together.
// A failure to commit is reported as an unavailable error that is never retryable.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
