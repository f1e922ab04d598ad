package user

import (
	"context"
	"io"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"gigbridge-platform/pkg/config"
	"gigbridge-platform/pkg/errutil"
	"gigbridge-platform/pkg/middleware"
	"gigbridge-platform/pkg/respond"
	"gigbridge-platform/pkg/token"
)

type RouteParams struct {
	fx.In
	Engine   *gin.Engine
	Service  *Service
	Config   *config.Config
	Tokens   *token.Manager
	Enforcer *casbin.Enforcer
}

type routes struct {
	svc    *Service
	cfg    *config.Config
	tokens *token.Manager
}

func RegisterRoutes(p RouteParams) {
	r := &routes{svc: p.Service, cfg: p.Config, tokens: p.Tokens}

	auth := p.Engine.Group("/api/v1/auth/users")
	auth.POST("/register", r.register)
	auth.POST("/login", r.login)
	auth.POST("/refresh", r.refresh)
	auth.POST("/logout", r.logout)

	authed := p.Engine.Group("/api/v1",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	authed.GET("/users/me", r.me)
	authed.PATCH("/users/me", r.updateProfile)
	authed.POST("/users/me/avatar", r.uploadAvatar)
	authed.POST("/users/me/kyc", r.submitKYC)
	authed.POST("/users/:id/reviews", r.submitReview)
	authed.GET("/users/:id/reviews", r.listReviews)

	admin := authed.Group("/admin/users")
	admin.GET("", r.adminList)
	admin.POST("/:id/ban", r.adminBan)
	admin.POST("/:id/unban", r.adminUnban)
	admin.POST("/:id/kyc/approve", r.adminApproveKYC)
	admin.POST("/:id/kyc/reject", r.adminRejectKYC)
}

func (r *routes) setAuthCookies(c *gin.Context, access, refresh string) {
	secure := r.cfg.Auth.CookieSecure
	domain := r.cfg.Auth.CookieDomain
	c.SetCookie(token.AccessCookie, access, int(r.tokens.AccessTTL().Seconds()), "/", domain, secure, true)
	c.SetCookie(token.RefreshCookie, refresh, int(r.tokens.RefreshTTL().Seconds()), "/", domain, secure, true)
}

func (r *routes) clearAuthCookies(c *gin.Context) {
	domain := r.cfg.Auth.CookieDomain
	c.SetCookie(token.AccessCookie, "", -1, "/", domain, r.cfg.Auth.CookieSecure, true)
	c.SetCookie(token.RefreshCookie, "", -1, "/", domain, r.cfg.Auth.CookieSecure, true)
}

func (r *routes) register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	u, err := r.svc.Register(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, u)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *routes) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	u, access, refresh, err := r.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	r.setAuthCookies(c, access, refresh)
	respond.OK(c, u)
}

func (r *routes) refresh(c *gin.Context) {
	raw, err := c.Cookie(token.RefreshCookie)
	if err != nil || raw == "" {
		respond.Error(c, errutil.Unauthorized("missing refresh token"))
		return
	}

	u, access, refresh, err := r.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		respond.Error(c, err)
		return
	}

	r.setAuthCookies(c, access, refresh)
	respond.OK(c, u)
}

func (r *routes) logout(c *gin.Context) {
	r.clearAuthCookies(c)
	respond.Message(c, "logged out")
}

func (r *routes) me(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	u, err := r.svc.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) updateProfile(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	u, err := r.svc.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) uploadAvatar(c *gin.Context) {
	r.uploadFile(c, r.svc.UploadAvatar)
}

func (r *routes) submitKYC(c *gin.Context) {
	r.uploadFile(c, r.svc.SubmitKYC)
}

type uploadFn func(ctx context.Context, userID, filename, contentType string, f io.Reader, size int64) (*User, error)

func (r *routes) uploadFile(c *gin.Context, fn uploadFn) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}
	defer file.Close()

	u, err := fn(c.Request.Context(), userID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) submitReview(c *gin.Context) {
	reviewerID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}
	in.RevieweeID = c.Param("id")

	review, err := r.svc.SubmitReview(c.Request.Context(), reviewerID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, review)
}

func (r *routes) listReviews(c *gin.Context) {
	reviews, err := r.svc.ReviewsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, reviews)
}

func (r *routes) adminList(c *gin.Context) {
	users, err := r.svc.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, users)
}

func (r *routes) adminBan(c *gin.Context) {
	u, err := r.svc.SetBanned(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) adminUnban(c *gin.Context) {
	u, err := r.svc.SetBanned(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) adminApproveKYC(c *gin.Context) {
	u, err := r.svc.DecideKYC(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}

func (r *routes) adminRejectKYC(c *gin.Context) {
	u, err := r.svc.DecideKYC(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, u)
}
