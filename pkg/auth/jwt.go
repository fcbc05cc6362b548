package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the caller's role as resolved by the identity provider.
type Role string

const (
	RoleProvider  Role = "provider"
	RoleRequester Role = "requester"
	RoleAdmin     Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleProvider, RoleRequester, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID  uuid.UUID
	Role    Role
	Name    string
	Contact string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager creates a JWTManager.
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Generate signs a token for the given identity.
func (m *JWTManager) Generate(claims Claims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role:    string(claims.Role),
		Name:    claims.Name,
		Contact: claims.Contact,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	userID, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	role := Role(tc.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}

	return &Claims{UserID: userID, Role: role, Name: tc.Name, Contact: tc.Contact}, nil
}
