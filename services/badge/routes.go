package badge

import (
	"strconv"

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

	authed.GET("/badges", r.list)
	authed.GET("/leaderboard", r.leaderboard)
	authed.GET("/users/:id/badges", r.badgesOf)

	admin := authed.Group("/admin/badges")
	admin.POST("", r.create)
	admin.PATCH("/:id", r.update)
	admin.DELETE("/:id", r.delete)
	admin.POST("/recompute/:user_id", r.recompute)
}

func (r *routes) list(c *gin.Context) {
	badges, err := r.svc.ListBadges(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, badges)
}

func (r *routes) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := r.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, entries)
}

func (r *routes) badgesOf(c *gin.Context) {
	awards, err := r.svc.BadgesOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, awards)
}

func (r *routes) create(c *gin.Context) {
	var in BadgeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	b, err := r.svc.CreateBadge(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, b)
}

func (r *routes) update(c *gin.Context) {
	var in UpdateBadgeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	b, err := r.svc.UpdateBadge(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, b)
}

func (r *routes) delete(c *gin.Context) {
	if err := r.svc.DeleteBadge(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	respond.Message(c, "badge deleted")
}

func (r *routes) recompute(c *gin.Context) {
	if err := r.svc.Recompute(c.Request.Context(), c.Param("user_id")); err != nil {
		respond.Error(c, err)
		return
	}
	respond.Message(c, "recompute complete")
}
