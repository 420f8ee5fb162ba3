// File: internal/profile/handler.go
package profile

import (
	"net/http"

	"operationcode_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("profile_handler"),
	}
}

// RegisterRoutes mounts the self-service routes behind authMW and the admin
// routes behind authMW followed by adminMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	profileGroup := router.Group("/auth/profile")
	profileGroup.Use(authMW)
	{
		profileGroup.GET("/", h.getOwn)
		profileGroup.PUT("/", h.updateOwn)
		profileGroup.PATCH("/", h.updateOwn)
	}

	adminGroup := profileGroup.Group("/admin")
	adminGroup.Use(adminMW)
	{
		adminGroup.GET("/", h.adminGet)
		adminGroup.PUT("/", h.adminUpdate)
		adminGroup.PATCH("/", h.adminUpdate)
	}
}

func (h *Handler) getOwn(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	p, err := h.service.GetOwn(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", ToProfileResponse(p))
}

func (h *Handler) updateOwn(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.UpdateOwn(c.Request.Context(), userID, req, c.Request.Method == http.MethodPut)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", ToProfileResponse(p))
}

func (h *Handler) adminGet(c *gin.Context) {
	p, err := h.service.GetByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", ToProfileResponse(p))
}

func (h *Handler) adminUpdate(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		common.RespondWithError(c, errMissingEmail)
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.UpdateByEmail(c.Request.Context(), email, req, c.Request.Method == http.MethodPut)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Info("Admin updated profile",
		zap.String("adminID", common.GetUserIDFromContext(c).String()),
		zap.String("profileID", p.ID.String()))
	common.RespondOK(c, "Profile updated successfully.", ToProfileResponse(p))
}
