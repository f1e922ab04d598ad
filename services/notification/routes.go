package notification

import (
	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"gigbridge-platform/pkg/middleware"
	"gigbridge-platform/pkg/respond"
	"gigbridge-platform/pkg/token"
)

type RouteParams struct {
	fx.In
	Engine   *gin.Engine
	Service  *Service
	Tokens   *token.Manager
	Enforcer *casbin.Enforcer
}

func RegisterRoutes(p RouteParams) {
	group := p.Engine.Group("/api/v1/notifications",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	group.GET("", p.Service.list)
	group.POST("/:id/read", p.Service.markRead)
	group.POST("/read-all", p.Service.markAllRead)
}

func (s *Service) list(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	items, err := s.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, items)
}

func (s *Service) markRead(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if err := s.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	respond.Message(c, "notification marked read")
}

func (s *Service) markAllRead(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if err := s.MarkAllRead(c.Request.Context(), userID); err != nil {
		respond.Error(c, err)
		return
	}
	respond.Message(c, "notifications marked read")
}
