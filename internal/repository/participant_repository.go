package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/domain"
)

// ParticipantModel is the GORM model for the participants table.
type ParticipantModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role        string    `gorm:"type:varchar(20);not null;index"`
	DisplayName string    `gorm:"type:varchar(200);not null;default:''"`
	Contact     string    `gorm:"type:varchar(320);not null;default:''"`
	Version     int64     `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (ParticipantModel) TableName() string { return "participants" }

// GormParticipantRepository implements participant.Repository using GORM.
type GormParticipantRepository struct {
	db *gorm.DB
	tx *txState
}

func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

func (r *GormParticipantRepository) FindByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	var model ParticipantModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, participant.ErrParticipantNotFound
		}
		return nil, translateError(err, "find participant", r.tx)
	}
	return toParticipantDomain(&model), nil
}

func (r *GormParticipantRepository) ListByRole(ctx context.Context, role participant.Role) ([]*participant.Participant, error) {
	var models []ParticipantModel
	if err := r.db.WithContext(ctx).
		Where("role = ?", string(role)).
		Order("lower(display_name) ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, translateError(err, "list participants", r.tx)
	}
	out := make([]*participant.Participant, len(models))
	for i := range models {
		out[i] = toParticipantDomain(&models[i])
	}
	return out, nil
}

func (r *GormParticipantRepository) Save(ctx context.Context, p *participant.Participant) error {
	r.tx.markWrite()
	if err := r.db.WithContext(ctx).Create(toParticipantModel(p)).Error; err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.NewConflictError("participant already exists")
		}
		return translateError(err, "save participant", r.tx)
	}
	return nil
}

func (r *GormParticipantRepository) Update(ctx context.Context, p *participant.Participant) error {
	model := toParticipantModel(p)
	previousVersion := p.Version() - 1

	r.tx.markWrite()
	result := r.db.WithContext(ctx).
		Model(&ParticipantModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"display_name": model.DisplayName,
			"contact":      model.Contact,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "update participant", r.tx)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("participant was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toParticipantModel(p *participant.Participant) *ParticipantModel {
	return &ParticipantModel{
		ID:          p.ID(),
		Role:        string(p.Role()),
		DisplayName: p.DisplayName(),
		Contact:     p.Contact(),
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func toParticipantDomain(m *ParticipantModel) *participant.Participant {
	return participant.Reconstruct(
		m.ID, participant.Role(m.Role),
		m.DisplayName, m.Contact,
		m.Version,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}

var _ participant.Repository = (*GormParticipantRepository)(nil)
