package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/errutil"
)

// Error renders the last handler error as the canonical JSON envelope.
// Known BaseErrors map through their CoreStatus; anything else is a 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErr := c.Errors.Last()
		if ginErr == nil || c.Writer.Written() {
			return
		}

		var base errutil.BaseError
		if errors.As(ginErr.Err, &base) {
			status := base.Code.HTTPStatus()
			if status >= http.StatusInternalServerError {
				zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(base))
			}
			c.JSON(status, gin.H{
				"success": false,
				"message": base.Message,
				"code":    base.Code,
				"details": base.Details,
			})
			return
		}

		zap.L().Error("unhandled request error", zap.String("path", c.FullPath()), zap.Error(ginErr.Err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal server error",
			"code":    errutil.StatusInternal,
		})
	}
}
