package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigbridge-platform/pkg/errutil"
)

// JSON envelope shared by every endpoint: {"success":true,"data":...} on the
// happy path, {"success":false,"message":...} from the error middleware.

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// Error defers rendering to the error middleware.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BadBody wraps a binding failure into the canonical bad-request error.
func BadBody(err error) error {
	return errutil.BadRequest("invalid request body", errutil.WithErr(err))
}
