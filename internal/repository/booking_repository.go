package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequesterID        uuid.UUID `gorm:"type:uuid;not null;index:idx_bookings_requester,priority:1"`
	RequesterName      string    `gorm:"size:200;not null;default:''"`
	RequesterContact   string    `gorm:"size:320;not null;default:''"`
	ProviderID         uuid.UUID `gorm:"type:uuid;not null;index:idx_bookings_provider,priority:1"`
	ProviderName       string    `gorm:"size:200;not null;default:''"`
	ProviderContact    string    `gorm:"size:320;not null;default:''"`
	SlotID             uuid.UUID `gorm:"type:uuid;not null"`
	StartAt            time.Time `gorm:"type:timestamptz;not null;index:idx_bookings_requester,priority:2;index:idx_bookings_provider,priority:2"`
	EndAt              time.Time `gorm:"type:timestamptz;not null;index:idx_bookings_status_end,priority:2"`
	Status             string    `gorm:"size:30;not null;index:idx_bookings_status_end,priority:1"`
	MeetingReference   string    `gorm:"size:500;not null"`
	CancellationReason string    `gorm:"size:1000;not null;default:''"`
	CancelledBy        *string   `gorm:"size:20"`
	Version            int64     `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt          time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
	tx *txState
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Insert persists a new booking.
func (r *GormBookingRepository) Insert(ctx context.Context, bk *bookingDomain.Booking) error {
	r.tx.markWrite()
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.NewConflictError("booking already exists")
		}
		return translateError(err, "save booking", r.tx)
	}
	return nil
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bookingDomain.ErrBookingNotFound
		}
		return nil, translateError(err, "find booking by ID", r.tx)
	}
	return toDomainBooking(&model)
}

// ListByParticipant retrieves a participant's bookings on one side, earliest first.
func (r *GormBookingRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID, role participant.Role) ([]*bookingDomain.Booking, error) {
	column := "requester_id"
	if role == participant.RoleProvider {
		column = "provider_id"
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where(column+" = ?", participantID).
		Order("start_at ASC, created_at ASC").
		Find(&models).Error; err != nil {
		return nil, translateError(err, "list bookings by participant", r.tx)
	}
	return toDomainBookings(models)
}

// TryTransitionStatus validates the transition on the loaded aggregate, then applies it
// with a conditional UPDATE on status and version so a concurrent transition loses.
func (r *GormBookingRepository) TryTransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	expected, next bookingDomain.BookingStatus,
	meta bookingDomain.TransitionMeta,
	now time.Time,
) (*bookingDomain.Booking, error) {
	bk, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousVersion := bk.Version()
	if err := bk.TransitionFrom(expected, next, meta, now); err != nil {
		return nil, err
	}

	model := toBookingModel(bk)
	r.tx.markWrite()
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status = ? AND version = ?", id, string(expected), previousVersion).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"cancellation_reason": model.CancellationReason,
			"cancelled_by":        model.CancelledBy,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		return nil, translateError(result.Error, "update booking status", r.tx)
	}
	if result.RowsAffected == 0 {
		return nil, bookingDomain.ErrUnexpectedStatus.WithMessage("booking was modified by another transaction")
	}
	return bk, nil
}

// ListConfirmedEndedBefore returns confirmed bookings whose range is over at t.
func (r *GormBookingRepository) ListConfirmedEndedBefore(ctx context.Context, t time.Time, limit int) ([]*bookingDomain.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", string(bookingDomain.StatusConfirmed), t.UTC()).
		Order("end_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []BookingModel
	if err := q.Find(&models).Error; err != nil {
		return nil, translateError(err, "list elapsed bookings", r.tx)
	}
	return toDomainBookings(models)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[bookingDomain.BookingStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, translateError(err, "count by status", r.tx)
	}

	counts := make(map[bookingDomain.BookingStatus]int64)
	for _, sc := range results {
		counts[bookingDomain.BookingStatus(sc.Status)] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	m := &BookingModel{
		ID:                 bk.ID(),
		RequesterID:        bk.Requester().ID,
		RequesterName:      bk.Requester().Name,
		RequesterContact:   bk.Requester().Contact,
		ProviderID:         bk.Provider().ID,
		ProviderName:       bk.Provider().Name,
		ProviderContact:    bk.Provider().Contact,
		SlotID:             bk.SlotID(),
		StartAt:            bk.Range().Start(),
		EndAt:              bk.Range().End(),
		Status:             string(bk.Status()),
		MeetingReference:   bk.MeetingReference(),
		CancellationReason: bk.CancellationReason(),
		Version:            bk.Version(),
		CreatedAt:          bk.CreatedAt(),
		UpdatedAt:          bk.UpdatedAt(),
	}
	if by := bk.CancelledBy(); by != nil {
		s := string(*by)
		m.CancelledBy = &s
	}
	return m
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	rng, err := timerange.New(m.StartAt, m.EndAt)
	if err != nil {
		return nil, fmt.Errorf("booking %s has a corrupt range: %w", m.ID, err)
	}

	var cancelledBy *participant.Role
	if m.CancelledBy != nil {
		role := participant.Role(*m.CancelledBy)
		cancelledBy = &role
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		participant.Snapshot{ID: m.RequesterID, Name: m.RequesterName, Contact: m.RequesterContact},
		participant.Snapshot{ID: m.ProviderID, Name: m.ProviderName, Contact: m.ProviderContact},
		m.SlotID,
		rng,
		status,
		m.MeetingReference,
		m.CancellationReason,
		cancelledBy,
		m.Version,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

var _ bookingDomain.BookingRepository = (*GormBookingRepository)(nil)
