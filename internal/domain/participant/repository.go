package participant

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for the participant directory.
type Repository interface {
	// FindByID returns ErrParticipantNotFound when the id is unknown.
	FindByID(ctx context.Context, id uuid.UUID) (*Participant, error)
	// ListByRole returns participants of role ordered by display name.
	ListByRole(ctx context.Context, role Role) ([]*Participant, error)
	// Save inserts a new participant. An existing id yields a conflict error.
	Save(ctx context.Context, p *Participant) error
	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, p *Participant) error
}
