package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/token"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Authenticate resolves the caller from the HTTP-only access cookie (or a
// Bearer header for non-browser clients) and stores identity in the gin
// context. Requests without a valid access token are rejected.
func Authenticate(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if cookie, err := c.Cookie(token.AccessCookie); err == nil && cookie != "" {
			raw = cookie
		} else if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimPrefix(header, "Bearer ")
		}

		if raw == "" {
			c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "missing authorization"})
			return
		}

		claims, err := tokens.VerifyAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated caller id from the gin context.
func UserID(c *gin.Context) (string, error) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", errutil.Unauthorized("missing authenticated user")
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", errutil.Unauthorized("missing authenticated user")
	}
	return id, nil
}

// Role returns the authenticated caller role from the gin context.
func Role(c *gin.Context) string {
	v, _ := c.Get(ContextRole)
	role, _ := v.(string)
	return role
}
