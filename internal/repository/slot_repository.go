package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/educonnect/service-booking/internal/domain/participant"
	slotDomain "github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// SlotModel is the GORM model for the availability_slots table.
type SlotModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProviderID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_slot_provider_range,priority:1;index:idx_slots_provider_start,priority:1"`
	StartAt       time.Time  `gorm:"type:timestamptz;not null;uniqueIndex:uq_slot_provider_range,priority:2;index:idx_slots_provider_start,priority:2"`
	EndAt         time.Time  `gorm:"type:timestamptz;not null;uniqueIndex:uq_slot_provider_range,priority:3"`
	State         string     `gorm:"type:varchar(10);not null;default:'free'"`
	HolderID      *uuid.UUID `gorm:"type:uuid"`
	HolderName    string     `gorm:"type:varchar(200);not null;default:''"`
	HolderContact string     `gorm:"type:varchar(320);not null;default:''"`
	Version       int64      `gorm:"not null;default:1"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt     time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (SlotModel) TableName() string { return "availability_slots" }

// GormSlotRepository implements slot.Repository using GORM. When created by a unit of
// work it runs inside that transaction and point reads take a row lock. root is the
// connection pool outside the transaction, used to explain a lock timeout after the
// transaction has been aborted.
type GormSlotRepository struct {
	db   *gorm.DB
	root *gorm.DB
	tx   *txState
}

// NewGormSlotRepository creates a non-transactional GormSlotRepository.
func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

// InsertBatch writes all slots in a single INSERT so the batch is all-or-nothing.
func (r *GormSlotRepository) InsertBatch(ctx context.Context, slots []*slotDomain.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	models := make([]SlotModel, len(slots))
	for i, s := range slots {
		models[i] = *toSlotModel(s)
	}

	r.tx.markWrite()
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		if pgCode(err) == pgUniqueViolation {
			return slotDomain.ErrDuplicateSlot
		}
		return translateError(err, "insert slots", r.tx)
	}
	return nil
}

// FindByID retrieves a slot. Inside a unit of work the row is locked FOR UPDATE and the
// call waits for a concurrent holder of the lock, up to the unit of work's lock timeout.
func (r *GormSlotRepository) FindByID(ctx context.Context, id uuid.UUID) (*slotDomain.Slot, error) {
	return r.find(ctx, id, r.tx != nil)
}

func (r *GormSlotRepository) find(ctx context.Context, id uuid.UUID, lock bool) (*slotDomain.Slot, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model SlotModel
	if err := q.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, slotDomain.ErrSlotNotFound
		}
		if pgCode(err) == pgLockNotAvailable {
			return nil, r.explainLockTimeout(ctx, id, err)
		}
		return nil, translateError(err, "find slot", r.tx)
	}
	return toSlotDomain(&model), nil
}

// explainLockTimeout reads the slot outside the aborted transaction. A held slot is
// booked; a free one was only locked by an attempt that has not finished, so the caller
// may retry.
func (r *GormSlotRepository) explainLockTimeout(ctx context.Context, id uuid.UUID, lockErr error) error {
	if r.root == nil {
		return domain.NewUnavailableError(fmt.Errorf("lock slot: %w", lockErr), true)
	}
	var model SlotModel
	if err := r.root.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return slotDomain.ErrSlotNotFound
		}
		return translateError(err, "find slot", nil)
	}
	if slotDomain.State(model.State) == slotDomain.StateHeld {
		return slotDomain.ErrSlotAlreadyBooked
	}
	return domain.NewUnavailableError(fmt.Errorf("lock slot: %w", lockErr), true)
}

// ListByProviderAndWindow returns slots starting in [from, to), earliest first.
func (r *GormSlotRepository) ListByProviderAndWindow(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*slotDomain.Slot, error) {
	var models []SlotModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND start_at >= ? AND start_at < ?", providerID, from.UTC(), to.UTC()).
		Order("start_at ASC, end_at ASC").
		Find(&models).Error; err != nil {
		return nil, translateError(err, "list slots", r.tx)
	}

	slots := make([]*slotDomain.Slot, len(models))
	for i := range models {
		slots[i] = toSlotDomain(&models[i])
	}
	return slots, nil
}

// TryTransitionToHeld is a conditional UPDATE on state and range. When no row matches,
// the current row is read to report why.
func (r *GormSlotRepository) TryTransitionToHeld(ctx context.Context, id uuid.UUID, expected timerange.TimeRange, holder slotDomain.Holder, now time.Time) (*slotDomain.Slot, error) {
	r.tx.markWrite()
	result := r.db.WithContext(ctx).
		Model(&SlotModel{}).
		Where("id = ? AND state = ? AND start_at = ? AND end_at = ?",
			id, string(slotDomain.StateFree), expected.Start(), expected.End()).
		Updates(map[string]interface{}{
			"state":          string(slotDomain.StateHeld),
			"holder_id":      holder.ID,
			"holder_name":    holder.Name,
			"holder_contact": holder.Contact,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		if pgCode(result.Error) == pgLockNotAvailable {
			return nil, r.explainLockTimeout(ctx, id, result.Error)
		}
		return nil, translateError(result.Error, "hold slot", r.tx)
	}

	current, err := r.find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		if cerr := current.CheckReservable(expected); cerr != nil {
			return nil, cerr
		}
		return nil, slotDomain.ErrSlotAlreadyBooked
	}
	return current, nil
}

// TryTransitionToFree releases a held slot; a free slot is returned as is.
func (r *GormSlotRepository) TryTransitionToFree(ctx context.Context, id uuid.UUID, now time.Time) (*slotDomain.Slot, error) {
	r.tx.markWrite()
	result := r.db.WithContext(ctx).
		Model(&SlotModel{}).
		Where("id = ? AND state = ?", id, string(slotDomain.StateHeld)).
		Updates(map[string]interface{}{
			"state":          string(slotDomain.StateFree),
			"holder_id":      nil,
			"holder_name":    "",
			"holder_contact": "",
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		return nil, translateError(result.Error, "free slot", r.tx)
	}
	return r.find(ctx, id, false)
}

// Delete removes the slot only while it is free.
func (r *GormSlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.tx.markWrite()
	result := r.db.WithContext(ctx).
		Where("id = ? AND state = ?", id, string(slotDomain.StateFree)).
		Delete(&SlotModel{})
	if result.Error != nil {
		return translateError(result.Error, "delete slot", r.tx)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.find(ctx, id, false)
	if err != nil {
		return err
	}
	return current.CheckDeletable()
}

// --- Conversions ---

func toSlotModel(s *slotDomain.Slot) *SlotModel {
	m := &SlotModel{
		ID:         s.ID(),
		ProviderID: s.ProviderID(),
		StartAt:    s.Range().Start(),
		EndAt:      s.Range().End(),
		State:      string(s.State()),
		Version:    s.Version(),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
	}
	if h := s.Holder(); h != nil {
		id := h.ID
		m.HolderID = &id
		m.HolderName = h.Name
		m.HolderContact = h.Contact
	}
	return m
}

func toSlotDomain(m *SlotModel) *slotDomain.Slot {
	var holder *slotDomain.Holder
	if m.HolderID != nil {
		holder = &participant.Snapshot{ID: *m.HolderID, Name: m.HolderName, Contact: m.HolderContact}
	}
	return slotDomain.Reconstruct(
		m.ID, m.ProviderID,
		timerange.MustNew(m.StartAt, m.EndAt),
		slotDomain.State(m.State),
		holder,
		m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}

var _ slotDomain.Repository = (*GormSlotRepository)(nil)
