package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
)

// SlotRepository implements slot.Repository.
type SlotRepository struct {
	access
}

func (r *SlotRepository) InsertBatch(ctx context.Context, slots []*slot.Slot) error {
	return r.write(func(st *state) error {
		rows := make([]slotRow, 0, len(slots))
		batch := make(map[slotKey]struct{}, len(slots))
		for _, s := range slots {
			row := toSlotRow(s)
			k := row.key()
			if _, dup := batch[k]; dup {
				return slot.ErrDuplicateSlot
			}
			if _, exists := st.slotKeys[k]; exists {
				return slot.ErrDuplicateSlot.WithMessage(
					fmt.Sprintf("a slot for %s already exists", s.Range()))
			}
			batch[k] = struct{}{}
			rows = append(rows, row)
		}
		for _, row := range rows {
			st.slots[row.ID] = row
			st.slotKeys[row.key()] = row.ID
		}
		return nil
	})
}

func (r *SlotRepository) FindByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	var out *slot.Slot
	err := r.read(func(st *state) error {
		row, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		out = toSlotDomain(row)
		return nil
	})
	return out, err
}

func (r *SlotRepository) ListByProviderAndWindow(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*slot.Slot, error) {
	var out []*slot.Slot
	err := r.read(func(st *state) error {
		for _, row := range st.slots {
			if row.ProviderID != providerID {
				continue
			}
			if row.Start.Before(from) || !row.Start.Before(to) {
				continue
			}
			out = append(out, toSlotDomain(row))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Range().Start(), out[j].Range().Start()
		if si.Equal(sj) {
			return out[i].Range().End().Before(out[j].Range().End())
		}
		return si.Before(sj)
	})
	return out, err
}

func (r *SlotRepository) TryTransitionToHeld(ctx context.Context, id uuid.UUID, expected timerange.TimeRange, holder slot.Holder, now time.Time) (*slot.Slot, error) {
	var out *slot.Slot
	err := r.write(func(st *state) error {
		row, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		s := toSlotDomain(row)
		if err := s.Hold(expected, holder, now); err != nil {
			return err
		}
		st.slots[id] = toSlotRow(s)
		out = s
		return nil
	})
	return out, err
}

func (r *SlotRepository) TryTransitionToFree(ctx context.Context, id uuid.UUID, now time.Time) (*slot.Slot, error) {
	var out *slot.Slot
	err := r.write(func(st *state) error {
		row, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		s := toSlotDomain(row)
		if s.Release(now) {
			st.slots[id] = toSlotRow(s)
		}
		out = s
		return nil
	})
	return out, err
}

func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		row, ok := st.slots[id]
		if !ok {
			return slot.ErrSlotNotFound
		}
		if err := toSlotDomain(row).CheckDeletable(); err != nil {
			return err
		}
		delete(st.slots, id)
		delete(st.slotKeys, row.key())
		return nil
	})
}

func toSlotRow(s *slot.Slot) slotRow {
	return slotRow{
		ID:         s.ID(),
		ProviderID: s.ProviderID(),
		Start:      s.Range().Start(),
		End:        s.Range().End(),
		State:      string(s.State()),
		Holder:     s.Holder(),
		Version:    s.Version(),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
	}
}

func toSlotDomain(row slotRow) *slot.Slot {
	var holder *slot.Holder
	if row.Holder != nil {
		h := *row.Holder
		holder = &h
	}
	return slot.Reconstruct(
		row.ID, row.ProviderID,
		timerange.MustNew(row.Start, row.End),
		slot.State(row.State),
		holder,
		row.Version,
		row.CreatedAt, row.UpdatedAt,
	)
}

var _ slot.Repository = (*SlotRepository)(nil)
