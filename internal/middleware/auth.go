// File: internal/middleware/auth.go
package middleware

import (
	"operationcode_backend/internal/common"
	"operationcode_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. Only access
// tokens are accepted; a refresh token in the Authorization header is rejected.
func AuthMiddleware(tokenService shared.TokenService, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("auth_middleware")
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token is invalid or expired."))
			return
		}
		if claims.Kind != shared.TokenKindAccess {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("An access token is required."))
			return
		}

		c.Set(common.UserIDKey, claims.UserID)
		c.Set(common.UserEmailKey, claims.Email)
		c.Set(common.UserGroupsKey, claims.Groups)

		c.Next()
	}
}

// RequireGroups allows the request through only when the authenticated user belongs
// to every one of groups. It must run after AuthMiddleware.
func RequireGroups(groups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		have := common.GetUserGroupsFromContext(c)
		for _, g := range groups {
			if !common.HasGroup(have, g) {
				common.RespondWithError(c, common.ErrForbidden)
				return
			}
		}
		c.Next()
	}
}
