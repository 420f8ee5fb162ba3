// File: internal/auth/service.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"operationcode_backend/internal/config"
	"operationcode_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "operationcode_backend"

var errWrongTokenKind = errors.New("wrong token kind")

type JWTService struct {
	cfg    *config.Config
	logger *zap.Logger
}

var _ shared.TokenService = (*JWTService)(nil)

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) *JWTService {
	return &JWTService{cfg: cfg, logger: logger.Named("jwt_service")}
}

func (s *JWTService) GenerateAccessToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.sign(userData, shared.TokenKindAccess, s.cfg.JWTAccessTokenExpiryMinutes)
}

// GenerateRefreshToken signs a refresh token. Each one carries a unique ID so it
// can be revoked on logout.
func (s *JWTService) GenerateRefreshToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.sign(userData, shared.TokenKindRefresh, s.cfg.JWTRefreshTokenExpiryDays)
}

func (s *JWTService) sign(userData shared.UserDataForToken, kind string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(ttl)

	claims := &shared.Claims{
		UserID: userData.GetID(),
		Email:  userData.GetEmail(),
		Groups: userData.GetGroups(),
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userData.GetID().String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.String("kind", kind), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign %s token: %w", kind, err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken verifies signature, issuer and expiry and returns the claims. It
// accepts both token kinds; callers check Claims.Kind.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ParseRefreshToken is ValidateToken restricted to refresh tokens.
func (s *JWTService) ParseRefreshToken(refreshTokenString string) (*shared.Claims, error) {
	claims, err := s.ValidateToken(refreshTokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != shared.TokenKindRefresh {
		return nil, errWrongTokenKind
	}
	return claims, nil
}
