package attendance

import (
	"time"

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
	authed := p.Engine.Group("/api/v1",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	gigs := authed.Group("/gigs/attendance")
	gigs.POST("/:event_id/checkin", p.Service.checkIn)
	gigs.POST("/:event_id/checkout", p.Service.checkOut)
	gigs.GET("/history", p.Service.history)

	authed.GET("/events/:id/attendance", p.Service.byEvent)
}

func (s *Service) checkIn(c *gin.Context) {
	gigID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	att, err := s.CheckIn(c.Request.Context(), gigID, c.Param("event_id"), time.Now())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, att)
}

func (s *Service) checkOut(c *gin.Context) {
	gigID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	att, err := s.CheckOut(c.Request.Context(), gigID, c.Param("event_id"), time.Now())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, att)
}

func (s *Service) history(c *gin.Context) {
	gigID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	rows, err := s.History(c.Request.Context(), gigID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, rows)
}

func (s *Service) byEvent(c *gin.Context) {
	rows, err := s.ByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, rows)
}
