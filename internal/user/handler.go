// File: internal/user/handler.go
package user

import (
	"net/http"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves the authenticated user's own account.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("user_handler"),
	}
}

// RegisterRoutes mounts /auth/user/ on router. Every route requires authMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/auth/user")
	userGroup.Use(authMW)
	{
		userGroup.GET("/", h.getMe)
		userGroup.PUT("/", h.updateMe)
		userGroup.PATCH("/", h.updateMe)
	}
}

func (h *Handler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id := common.GetUserIDFromContext(c)
	if id == uuid.Nil {
		h.logger.Error("User ID missing from authenticated context", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) getMe(c *gin.Context) {
	id, ok := h.currentUserID(c)
	if !ok {
		return
	}
	usr, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", shared.ToUserResponse(usr))
}

// updateMe handles PUT (all fields required) and PATCH (any subset).
func (h *Handler) updateMe(c *gin.Context) {
	id, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if c.Request.Method == http.MethodPut {
		missing := map[string]string{}
		if req.FirstName == nil {
			missing["first_name"] = "This field is required."
		}
		if req.LastName == nil {
			missing["last_name"] = "This field is required."
		}
		if len(missing) > 0 {
			common.RespondWithError(c, common.NewValidationAPIError(missing))
			return
		}
	}

	usr, err := h.service.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User updated successfully.", shared.ToUserResponse(usr))
}
