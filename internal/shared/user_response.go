// File: internal/shared/user_response.go
package shared

import (
	"time"

	"github.com/google/uuid"
)

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Groups      []string   `json:"groups"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToUserResponse converts a shared.User to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Groups:      groups,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// AuthResponse is returned by login, registration and social login.
type AuthResponse struct {
	User  UserResponse  `json:"user"`
	Token TokenResponse `json:"token"`
}
