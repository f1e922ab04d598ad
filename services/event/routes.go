package event

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
	authed := p.Engine.Group("/api/v1",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	authed.GET("/events", p.Service.listEvents)
	authed.GET("/events/:id", p.Service.getEvent)

	host := authed.Group("/host/events")
	host.POST("", p.Service.createEvent)
	host.GET("", p.Service.listOwnEvents)
	host.PATCH("/:id", p.Service.updateEvent)
	host.POST("/:id/complete", p.Service.completeEvent)
}

func (s *Service) listEvents(c *gin.Context) {
	events, err := s.List(c.Request.Context(), Filter{Status: c.Query("status")})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, events)
}

func (s *Service) getEvent(c *gin.Context) {
	ev, err := s.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, ev)
}

func (s *Service) createEvent(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	ev, err := s.Create(c.Request.Context(), hostID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, ev)
}

func (s *Service) listOwnEvents(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	events, err := s.List(c.Request.Context(), Filter{HostID: hostID})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, events)
}

func (s *Service) updateEvent(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	ev, err := s.Update(c.Request.Context(), hostID, c.Param("id"), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, ev)
}

func (s *Service) completeEvent(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	ev, err := s.Complete(c.Request.Context(), hostID, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, ev)
}
