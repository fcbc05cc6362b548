package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/pkg/domain"
)

func TestEnsureProfile_CreateThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	created, err := f.participants.EnsureProfile(ctx, id, participant.RoleProvider, EnsureProfileRequest{DisplayName: "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Bo", created.DisplayName)
	assert.Empty(t, created.Contact)

	updated, err := f.participants.EnsureProfile(ctx, id, participant.RoleProvider, EnsureProfileRequest{Contact: "bo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bo", updated.DisplayName, "empty fields keep their value")
	assert.Equal(t, "bo@example.com", updated.Contact)

	_, err = f.participants.EnsureProfile(ctx, id, participant.RoleRequester, EnsureProfileRequest{})
	assert.ErrorIs(t, err, participant.ErrRoleChange)

	_, err = f.participants.EnsureProfile(ctx, id, participant.Role("admin"), EnsureProfileRequest{})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestListProviders_OnlyCompleteProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.participants.EnsureProfile(ctx, uuid.New(), participant.RoleProvider, EnsureProfileRequest{DisplayName: "No Contact"})
	require.NoError(t, err)
	_, err = f.participants.EnsureProfile(ctx, uuid.New(), participant.RoleProvider, EnsureProfileRequest{DisplayName: "Avery", Contact: "avery@example.com"})
	require.NoError(t, err)
	_, err = f.participants.EnsureProfile(ctx, uuid.New(), participant.RoleRequester, EnsureProfileRequest{DisplayName: "Req", Contact: "req@example.com"})
	require.NoError(t, err)

	providers, err := f.participants.ListProviders(ctx)
	require.NoError(t, err)

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.DisplayName
	}
	assert.Equal(t, []string{"Avery", f.provider.Name}, names)
}

func TestGetProfile_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.participants.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, participant.ErrParticipantNotFound)
}
