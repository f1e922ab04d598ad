package middleware

import (
	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
)

var RBACModule = fx.Module("rbac", fx.Provide(ProvideEnforcer))

func ProvideEnforcer(cfg *config.Config) *casbin.Enforcer {
	enforcer, err := casbin.NewEnforcer(cfg.AccessControl.Model, cfg.AccessControl.Policy)
	if err != nil {
		zap.L().Fatal("failed to load access control policy", zap.Error(err))
	}
	return enforcer
}

// Authorize enforces the casbin role policy against the request path and
// method. Runs after Authenticate so the role claim is already in context.
func Authorize(enforcer *casbin.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == "" {
			c.AbortWithStatusJSON(403, gin.H{"success": false, "message": "missing role"})
			return
		}

		ok, err := enforcer.Enforce(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			zap.L().Error("policy evaluation failed", zap.Error(err))
			c.AbortWithStatusJSON(500, gin.H{"success": false, "message": "authorization failure"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(403, gin.H{"success": false, "message": "forbidden for role " + role})
			return
		}

		c.Next()
	}
}
