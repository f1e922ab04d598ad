package dispute

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

type routes struct {
	svc *Service
}

func RegisterRoutes(p RouteParams) {
	r := &routes{svc: p.Service}

	authed := p.Engine.Group("/api/v1",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	authed.POST("/disputes", r.raise)
	authed.GET("/disputes", r.mine)

	admin := authed.Group("/admin/disputes")
	admin.GET("", r.adminList)
	admin.POST("/:id/resolve", r.adminResolve)
	admin.POST("/:id/reject", r.adminReject)
}

func (r *routes) raise(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in RaiseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	d, err := r.svc.Raise(c.Request.Context(), userID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, d)
}

func (r *routes) mine(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	disputes, err := r.svc.ByRaiser(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, disputes)
}

func (r *routes) adminList(c *gin.Context) {
	disputes, err := r.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, disputes)
}

type decideRequest struct {
	Resolution string `json:"resolution"`
}

func (r *routes) adminResolve(c *gin.Context) {
	r.decide(c, true)
}

func (r *routes) adminReject(c *gin.Context) {
	r.decide(c, false)
}

func (r *routes) decide(c *gin.Context, resolve bool) {
	adminID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	d, err := r.svc.Decide(c.Request.Context(), adminID, c.Param("id"), resolve, req.Resolution)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, d)
}
