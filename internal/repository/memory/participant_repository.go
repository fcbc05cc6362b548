package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/domain"
)

// ParticipantRepository implements participant.Repository.
type ParticipantRepository struct {
	access
}

func (r *ParticipantRepository) FindByID(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	var out *participant.Participant
	err := r.read(func(st *state) error {
		row, ok := st.participants[id]
		if !ok {
			return participant.ErrParticipantNotFound
		}
		out = toParticipantDomain(row)
		return nil
	})
	return out, err
}

func (r *ParticipantRepository) ListByRole(ctx context.Context, role participant.Role) ([]*participant.Participant, error) {
	var out []*participant.Participant
	err := r.read(func(st *state) error {
		for _, row := range st.participants {
			if row.Role == string(role) {
				out = append(out, toParticipantDomain(row))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].DisplayName()), strings.ToLower(out[j].DisplayName())
		if ni == nj {
			return out[i].ID().String() < out[j].ID().String()
		}
		return ni < nj
	})
	return out, err
}

func (r *ParticipantRepository) Save(ctx context.Context, p *participant.Participant) error {
	return r.write(func(st *state) error {
		if _, exists := st.participants[p.ID()]; exists {
			return domain.NewConflictError("participant already exists")
		}
		st.participants[p.ID()] = toParticipantRow(p)
		return nil
	})
}

func (r *ParticipantRepository) Update(ctx context.Context, p *participant.Participant) error {
	return r.write(func(st *state) error {
		row, ok := st.participants[p.ID()]
		if !ok {
			return participant.ErrParticipantNotFound
		}
		if row.Version != p.Version()-1 {
			return domain.NewConflictError("participant was modified by another transaction")
		}
		st.participants[p.ID()] = toParticipantRow(p)
		return nil
	})
}

func toParticipantRow(p *participant.Participant) participantRow {
	return participantRow{
		ID:          p.ID(),
		Role:        string(p.Role()),
		DisplayName: p.DisplayName(),
		Contact:     p.Contact(),
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func toParticipantDomain(row participantRow) *participant.Participant {
	return participant.Reconstruct(
		row.ID, participant.Role(row.Role),
		row.DisplayName, row.Contact,
		row.Version, row.CreatedAt, row.UpdatedAt,
	)
}

var _ participant.Repository = (*ParticipantRepository)(nil)
