// File: internal/auth/model.go
package auth

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest is the body of token refresh and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SocialLoginRequest carries either a provider access token obtained by the client
// or an authorization code for the server to exchange.
type SocialLoginRequest struct {
	AccessToken string `json:"access_token" binding:"required_without=Code"`
	Code        string `json:"code" binding:"required_without=AccessToken"`
}
