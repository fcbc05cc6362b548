package participant

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewParticipant(uuid.Nil, RoleProvider, "Ada", "ada@example.com", now)
	assert.Error(t, err)

	_, err = NewParticipant(uuid.New(), Role("owner"), "Ada", "ada@example.com", now)
	assert.Error(t, err)

	p, err := NewParticipant(uuid.New(), RoleProvider, "  Ada  ", "ada@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName())
	assert.Equal(t, int64(1), p.Version())
	assert.True(t, p.IsListable())
}

func TestUpdateProfile(t *testing.T) {
	now := time.Now().UTC()
	p, err := NewParticipant(uuid.New(), RoleRequester, "Sam", "", now)
	require.NoError(t, err)
	assert.False(t, p.IsListable())

	changed, err := p.UpdateProfile(RoleRequester, "Sam", "", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(1), p.Version())

	later := now.Add(time.Minute)
	changed, err = p.UpdateProfile("", "", "sam@example.com", later)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "sam@example.com", p.Contact())
	assert.Equal(t, int64(2), p.Version())
	assert.Equal(t, later, p.UpdatedAt())

	_, err = p.UpdateProfile(RoleProvider, "Sam", "", later)
	assert.ErrorIs(t, err, ErrRoleChange)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("provider")
	require.NoError(t, err)
	assert.Equal(t, RoleProvider, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}
