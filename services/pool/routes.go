package pool

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

	authed.GET("/events/:id/pools", p.Service.listByEvent)

	host := authed.Group("/host/pools")
	host.POST("", p.Service.invite)

	organizer := authed.Group("/organizer/pools")
	organizer.GET("", p.Service.listOwn)
	organizer.GET("/applications", p.Service.pendingApplications)
	organizer.POST("/applications/:id/accept", p.Service.accept)
	organizer.POST("/applications/:id/reject", p.Service.reject)

	gigs := authed.Group("/gigs/pools")
	gigs.POST("/:id/apply", p.Service.apply)
	gigs.GET("/applications", p.Service.ownApplications)
}

func (s *Service) listByEvent(c *gin.Context) {
	pools, err := s.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, pools)
}

type inviteRequest struct {
	EventID     string `json:"event_id" binding:"required"`
	OrganizerID string `json:"organizer_id" binding:"required"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity" binding:"required"`
}

func (s *Service) invite(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	pool, err := s.Invite(c.Request.Context(), hostID, req.EventID, req.OrganizerID, req.Name, req.Capacity)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, pool)
}

func (s *Service) listOwn(c *gin.Context) {
	organizerID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	pools, err := s.ListByOrganizer(c.Request.Context(), organizerID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, pools)
}

func (s *Service) pendingApplications(c *gin.Context) {
	organizerID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	apps, err := s.PendingApplications(c.Request.Context(), organizerID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, apps)
}

func (s *Service) accept(c *gin.Context) {
	s.decide(c, true)
}

func (s *Service) reject(c *gin.Context) {
	s.decide(c, false)
}

func (s *Service) decide(c *gin.Context, accept bool) {
	organizerID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	app, err := s.Decide(c.Request.Context(), organizerID, c.Param("id"), accept)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, app)
}

type applyRequest struct {
	ProposedRate string `json:"proposed_rate" binding:"required"`
}

func (s *Service) apply(c *gin.Context) {
	gigID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	app, err := s.Apply(c.Request.Context(), gigID, c.Param("id"), req.ProposedRate)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, app)
}

func (s *Service) ownApplications(c *gin.Context) {
	gigID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	apps, err := s.ApplicationsByGig(c.Request.Context(), gigID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, apps)
}
