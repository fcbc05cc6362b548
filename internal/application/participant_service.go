package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

const ensureProfileAttempts = 3

// ParticipantService implements use cases for the participant directory.
type ParticipantService struct {
	repo   participant.Repository
	clock  timerange.Clock
	logger *zap.Logger
}

// NewParticipantService creates a new ParticipantService.
func NewParticipantService(repo participant.Repository, clock timerange.Clock, logger *zap.Logger) *ParticipantService {
	return &ParticipantService{repo: repo, clock: clock, logger: logger}
}

// EnsureProfile creates the participant on first sight and otherwise applies the non-empty
// fields. The role is fixed at creation; a different role is rejected.
func (s *ParticipantService) EnsureProfile(ctx context.Context, id uuid.UUID, role participant.Role, req EnsureProfileRequest) (*ParticipantDTO, error) {
	if !role.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid participant role: %s", role))
	}

	var lastErr error
	for attempt := 0; attempt < ensureProfileAttempts; attempt++ {
		p, err := s.upsert(ctx, id, role, req)
		if err == nil {
			result := toParticipantDTO(p)
			return &result, nil
		}
		// A concurrent create or update won; re-read and apply on top of it.
		if domain.KindOf(err) != domain.KindConflict || errors.Is(err, participant.ErrRoleChange) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *ParticipantService) upsert(ctx context.Context, id uuid.UUID, role participant.Role, req EnsureProfileRequest) (*participant.Participant, error) {
	now := s.clock.Now()

	existing, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, participant.ErrParticipantNotFound) {
		p, err := participant.NewParticipant(id, role, req.DisplayName, req.Contact, now)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, p); err != nil {
			return nil, err
		}
		s.logger.Info("participant registered",
			zap.String("participant_id", id.String()),
			zap.String("role", string(role)),
		)
		return p, nil
	}
	if err != nil {
		return nil, err
	}

	changed, err := existing.UpdateProfile(role, req.DisplayName, req.Contact, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return existing, nil
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.logger.Info("participant profile updated", zap.String("participant_id", id.String()))
	return existing, nil
}

// GetProfile returns a single directory entry.
func (s *ParticipantService) GetProfile(ctx context.Context, id uuid.UUID) (*ParticipantDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toParticipantDTO(p)
	return &result, nil
}

// ListProviders returns providers with a complete profile, ordered by display name.
func (s *ParticipantService) ListProviders(ctx context.Context) ([]ParticipantDTO, error) {
	providers, err := s.repo.ListByRole(ctx, participant.RoleProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	dtos := make([]ParticipantDTO, 0, len(providers))
	for _, p := range providers {
		if p.IsListable() {
			dtos = append(dtos, toParticipantDTO(p))
		}
	}
	return dtos, nil
}
