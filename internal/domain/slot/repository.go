package slot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/timerange"
)

// Repository is the slot store. Every mutation is a conditional write evaluated atomically
// against the stored row.
type Repository interface {
	// InsertBatch stores all slots or none. A (provider, range) pair that already exists
	// fails the whole batch with ErrDuplicateSlot.
	InsertBatch(ctx context.Context, slots []*Slot) error

	// FindByID returns ErrSlotNotFound when the slot does not exist. Inside a unit of work
	// the row stays locked until commit; a row already locked by another transaction fails
	// immediately with ErrSlotAlreadyBooked rather than waiting.
	FindByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// ListByProviderAndWindow returns slots whose start lies in [from, to), ordered by
	// start ascending.
	ListByProviderAndWindow(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*Slot, error)

	// TryTransitionToHeld succeeds only if the slot exists, is free, and its range equals
	// expected. Failures are ErrSlotNotFound, ErrSlotAlreadyBooked or ErrSlotChanged.
	TryTransitionToHeld(ctx context.Context, id uuid.UUID, expected timerange.TimeRange, holder Holder, now time.Time) (*Slot, error)

	// TryTransitionToFree releases a held slot. An already free slot is returned unchanged;
	// a missing slot yields ErrSlotNotFound.
	TryTransitionToFree(ctx context.Context, id uuid.UUID, now time.Time) (*Slot, error)

	// Delete removes a free slot. Held slots yield ErrSlotHeld.
	Delete(ctx context.Context, id uuid.UUID) error
}
