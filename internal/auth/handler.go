// File: internal/auth/handler.go
package auth

import (
	"operationcode_backend/internal/common"
	"operationcode_backend/internal/shared"
	"operationcode_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	userService   user.Service
	tokenService  shared.TokenService
	socialService *SocialService
	blocklist     TokenBlocklist
	logger        *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	userService user.Service,
	tokenService shared.TokenService,
	socialService *SocialService,
	blocklist TokenBlocklist,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService:   userService,
		tokenService:  tokenService,
		socialService: socialService,
		blocklist:     blocklist,
		logger:        logger.Named("auth_handler"),
	}
}

// RegisterRoutes sets up the routes for authentication operations. rateMW guards
// every endpoint that accepts credentials.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, rateMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/registration/", rateMW, h.register)
		authGroup.POST("/login/", rateMW, h.login)
		authGroup.POST("/token/refresh/", rateMW, h.refreshToken)
		authGroup.POST("/logout/", authMW, h.logout)

		authGroup.POST("/social/:provider/", rateMW, h.socialLogin)
		authGroup.POST("/social/:provider/connect/", authMW, h.socialConnect)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	usr, tokens, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Registration successful.", shared.AuthResponse{
		User:  shared.ToUserResponse(usr),
		Token: *tokens,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	usr, tokens, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", shared.AuthResponse{
		User:  shared.ToUserResponse(usr),
		Token: *tokens,
	})
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	claims, ok := h.usableRefreshToken(c, req.RefreshToken)
	if !ok {
		return
	}

	u, err := h.userService.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Warn("User not found for valid refresh token", zap.String("userID", claims.UserID.String()), zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User associated with refresh token not found."))
		return
	}
	if !u.IsActive {
		common.RespondWithError(c, common.ErrForbidden.WithDetails("User account is disabled."))
		return
	}

	accessToken, expiresAt, err := h.tokenService.GenerateAccessToken(u)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Token refreshed successfully.", &shared.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    common.AuthorizationTypeBearer,
		ExpiresAt:    expiresAt,
	})
}

// logout revokes the given refresh token. It must belong to the caller.
func (h *Handler) logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	claims, ok := h.usableRefreshToken(c, req.RefreshToken)
	if !ok {
		return
	}
	if claims.UserID != common.GetUserIDFromContext(c) {
		common.RespondWithError(c, common.ErrForbidden.WithDetails("The refresh token belongs to another user."))
		return
	}
	if err := h.blocklist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Successfully logged out.", nil)
}

func (h *Handler) usableRefreshToken(c *gin.Context, token string) (*shared.Claims, bool) {
	claims, err := h.tokenService.ParseRefreshToken(token)
	if err != nil {
		h.logger.Debug("Refresh token rejected", zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token."))
		return nil, false
	}
	revoked, err := h.blocklist.IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		common.RespondWithError(c, err)
		return nil, false
	}
	if revoked {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired refresh token."))
		return nil, false
	}
	return claims, true
}

func (h *Handler) socialLogin(c *gin.Context) {
	var req SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	profile, err := h.socialService.FetchProfile(c.Param("provider"), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	usr, created, err := h.userService.FindOrCreateSocialUser(c.Request.Context(), *profile)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	tokens, err := h.userService.IssueTokens(usr)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	body := shared.AuthResponse{User: shared.ToUserResponse(usr), Token: *tokens}
	if created {
		common.RespondCreated(c, "Account created.", body)
		return
	}
	common.RespondOK(c, "Login successful.", body)
}

func (h *Handler) socialConnect(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	var req SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	profile, err := h.socialService.FetchProfile(c.Param("provider"), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.userService.ConnectSocialAccount(c.Request.Context(), userID, *profile); err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Info("Connected social account", zap.String("userID", userID.String()), zap.String("provider", profile.Provider))
	common.RespondOK(c, "Social account connected.", gin.H{"provider": profile.Provider})
}
