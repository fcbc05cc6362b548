package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "educonnect", time.Minute)
	id := uuid.New()

	token, err := m.Generate(Claims{UserID: id, Role: RoleProvider, Name: "Ada", Contact: "ada@example.com"})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, RoleProvider, claims.Role)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Contact)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", "educonnect", time.Minute)
	verifier := NewJWTManager("secret-b", "educonnect", time.Minute)

	token, err := issuer.Generate(Claims{UserID: uuid.New(), Role: RoleRequester})
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", "educonnect", -time.Minute)
	token, err := m.Generate(Claims{UserID: uuid.New(), Role: RoleRequester})
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", "educonnect", time.Minute)
	token, err := m.Generate(Claims{UserID: uuid.New(), Role: Role("owner")})
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
