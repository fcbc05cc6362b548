package participant

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/pkg/domain"
)

// Role is the side a participant takes in a booking.
type Role string

const (
	RoleProvider  Role = "provider"
	RoleRequester Role = "requester"
)

// IsValid returns true if r is a recognized participant role.
func (r Role) IsValid() bool {
	return r == RoleProvider || r == RoleRequester
}

// ParseRole converts a string to a Role, returning an error if invalid.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid participant role: %s", s))
	}
	return r, nil
}

var (
	ErrParticipantNotFound = domain.NewError(domain.KindNotFound, "PARTICIPANT_NOT_FOUND", "participant not found")
	// ErrRoleChange is returned when a profile update tries to switch an established role.
	ErrRoleChange = domain.NewError(domain.KindConflict, "ROLE_IMMUTABLE", "a participant's role cannot be changed")
)

// Snapshot is the display data copied onto a booking at creation time.
type Snapshot struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Contact string    `json:"contact"`
}

// Participant is the directory entry for a provider or requester.
type Participant struct {
	id          uuid.UUID
	role        Role
	displayName string
	contact     string
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewParticipant creates a directory entry for an identity resolved upstream.
func NewParticipant(id uuid.UUID, role Role, displayName, contact string, now time.Time) (*Participant, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("participant ID is required")
	}
	if !role.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid participant role: %s", role))
	}
	return &Participant{
		id:          id,
		role:        role,
		displayName: strings.TrimSpace(displayName),
		contact:     strings.TrimSpace(contact),
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Participant from persistence data (no validation).
func Reconstruct(id uuid.UUID, role Role, displayName, contact string, version int64, createdAt, updatedAt time.Time) *Participant {
	return &Participant{
		id:          id,
		role:        role,
		displayName: displayName,
		contact:     contact,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Participant) ID() uuid.UUID        { return p.id }
func (p *Participant) Role() Role           { return p.role }
func (p *Participant) DisplayName() string  { return p.displayName }
func (p *Participant) Contact() string      { return p.contact }
func (p *Participant) Version() int64       { return p.version }
func (p *Participant) CreatedAt() time.Time { return p.createdAt }
func (p *Participant) UpdatedAt() time.Time { return p.updatedAt }

// Snapshot returns the value copy stored on bookings.
func (p *Participant) Snapshot() Snapshot {
	return Snapshot{ID: p.id, Name: p.displayName, Contact: p.contact}
}

// IsListable reports whether the participant should appear in the provider directory.
func (p *Participant) IsListable() bool {
	return p.role == RoleProvider && p.displayName != "" && p.contact != ""
}

// UpdateProfile applies non-empty fields. It reports whether anything changed so callers
// can skip a write. The role is fixed at creation.
func (p *Participant) UpdateProfile(role Role, displayName, contact string, now time.Time) (bool, error) {
	if role != "" && role != p.role {
		return false, ErrRoleChange
	}

	changed := false
	if name := strings.TrimSpace(displayName); name != "" && name != p.displayName {
		p.displayName = name
		changed = true
	}
	if c := strings.TrimSpace(contact); c != "" && c != p.contact {
		p.contact = c
		changed = true
	}
	if changed {
		p.version++
		p.updatedAt = now
	}
	return changed, nil
}
