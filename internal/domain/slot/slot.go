package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// State is whether a booking currently occupies the slot.
type State string

const (
	StateFree State = "free"
	StateHeld State = "held"
)

// IsValid returns true if the state is recognized.
func (s State) IsValid() bool {
	return s == StateFree || s == StateHeld
}

// ParseState converts a string to a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid slot state: %s", s)
	}
	return st, nil
}

// Holder is the requester occupying a held slot.
type Holder = participant.Snapshot

// Slot is the aggregate root for a provider's bookable time window.
type Slot struct {
	id         uuid.UUID
	providerID uuid.UUID
	rng        timerange.TimeRange
	state      State
	holder     *Holder
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewSlot creates a free slot.
func NewSlot(providerID uuid.UUID, rng timerange.TimeRange, now time.Time) (*Slot, error) {
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if rng.IsZero() {
		return nil, timerange.ErrInvalidTimeRange
	}
	return &Slot{
		id:         uuid.New(),
		providerID: providerID,
		rng:        rng,
		state:      StateFree,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// NewBatch builds free slots for every range. The batch is rejected as a whole when it is
// empty or when two ranges are identical.
func NewBatch(providerID uuid.UUID, ranges []timerange.TimeRange, now time.Time) ([]*Slot, error) {
	if len(ranges) == 0 {
		return nil, domain.NewValidationError("at least one time range is required")
	}

	seen := make(map[timerange.Key]struct{}, len(ranges))
	slots := make([]*Slot, 0, len(ranges))
	for _, r := range ranges {
		if _, dup := seen[r.Key()]; dup {
			return nil, ErrDuplicateSlot.WithMessage(fmt.Sprintf("time range %s appears more than once", r))
		}
		seen[r.Key()] = struct{}{}

		s, err := NewSlot(providerID, r, now)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}

// Reconstruct rebuilds a Slot from persistence data (no validation).
func Reconstruct(
	id, providerID uuid.UUID,
	rng timerange.TimeRange,
	state State,
	holder *Holder,
	version int64,
	createdAt, updatedAt time.Time,
) *Slot {
	return &Slot{
		id:         id,
		providerID: providerID,
		rng:        rng,
		state:      state,
		holder:     holder,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (s *Slot) ID() uuid.UUID               { return s.id }
func (s *Slot) ProviderID() uuid.UUID       { return s.providerID }
func (s *Slot) Range() timerange.TimeRange  { return s.rng }
func (s *Slot) State() State                { return s.state }
func (s *Slot) Version() int64              { return s.version }
func (s *Slot) CreatedAt() time.Time        { return s.createdAt }
func (s *Slot) UpdatedAt() time.Time        { return s.updatedAt }
func (s *Slot) IsFree() bool                { return s.state == StateFree }
func (s *Slot) IsOwnedBy(id uuid.UUID) bool { return s.providerID == id }

// Holder returns a copy of the holder, or nil when the slot is free.
func (s *Slot) Holder() *Holder {
	if s.holder == nil {
		return nil
	}
	h := *s.holder
	return &h
}

// CheckReservable verifies the slot can be held against the caller's view of it.
func (s *Slot) CheckReservable(expected timerange.TimeRange) error {
	if s.state != StateFree {
		return ErrSlotAlreadyBooked
	}
	if !s.rng.Equal(expected) {
		return ErrSlotChanged
	}
	return nil
}

// Hold transitions free to held for holder.
func (s *Slot) Hold(expected timerange.TimeRange, holder Holder, now time.Time) error {
	if err := s.CheckReservable(expected); err != nil {
		return err
	}
	if holder.ID == uuid.Nil {
		return domain.NewValidationError("requester ID is required")
	}
	s.state = StateHeld
	s.holder = &holder
	s.version++
	s.updatedAt = now
	return nil
}

// Release transitions held to free and clears the holder. It reports whether the slot
// changed; releasing a free slot is a no-op.
func (s *Slot) Release(now time.Time) bool {
	if s.state == StateFree {
		return false
	}
	s.state = StateFree
	s.holder = nil
	s.version++
	s.updatedAt = now
	return true
}

// CheckDeletable rejects deletion of a held slot.
func (s *Slot) CheckDeletable() error {
	if s.state == StateHeld {
		return ErrSlotHeld
	}
	return nil
}
