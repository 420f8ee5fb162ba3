// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"operationcode_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errMethodNotAllowed = common.NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL.")

// ErrorHandler renders errors attached with c.Error and gives unmatched routes a JSON body.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			if c.Writer.Written() {
				return
			}
			ginErr := c.Errors.Last()
			if apiErr, ok := common.IsAPIError(ginErr.Err); ok {
				c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
				return
			}
			logger.Error("Unhandled application error",
				zap.Error(ginErr.Err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDContextKey)),
			)
			c.AbortWithStatusJSON(common.ErrInternalServer.StatusCode, common.ErrInternalServer)
			return
		}

		if c.Writer.Written() {
			return
		}
		switch c.Writer.Status() {
		case http.StatusNotFound:
			notFound := common.ErrNotFound.WithDetails("The requested endpoint does not exist.")
			c.AbortWithStatusJSON(notFound.StatusCode, notFound)
		case http.StatusMethodNotAllowed:
			c.AbortWithStatusJSON(errMethodNotAllowed.StatusCode, errMethodNotAllowed)
		}
	}
}
