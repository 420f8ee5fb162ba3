package shared

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is the cross-package view of an account. Packages that must not import
// internal/user (onboarding, auth) work with this type.
type User struct {
	ID          uuid.UUID
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Groups      []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// TokenResponse represents the response containing JWT tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// OAuthUserProfile is what a social provider tells us about a person.
type OAuthUserProfile struct {
	Provider   string
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// UserDataForToken abstracts the user data needed for token generation.
type UserDataForToken interface {
	GetID() uuid.UUID
	GetEmail() string
	GetGroups() []string
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userData UserDataForToken) (string, time.Time, error)
	GenerateRefreshToken(userData UserDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(refreshTokenString string) (*Claims, error)
}

// Token kinds carried in Claims.Kind.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// Claims represents the JWT claims structure
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Groups []string  `json:"groups,omitempty"`
	Kind   string    `json:"kind"`
	jwt.RegisteredClaims
}
