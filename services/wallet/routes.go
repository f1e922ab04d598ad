package wallet

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
	group := p.Engine.Group("/api/v1/wallets",
		middleware.Authenticate(p.Tokens),
		middleware.Authorize(p.Enforcer),
	)

	group.GET("", p.Service.getWallet)
	group.GET("/entries", p.Service.listEntries)
	group.POST("/topup", p.Service.topup)
	group.POST("/topup/verify", p.Service.verifyTopup)
	group.POST("/withdraw", p.Service.withdraw)
}

func (s *Service) getWallet(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	w, err := s.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, w)
}

func (s *Service) listEntries(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	entries, err := s.Entries(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, entries)
}

type topupRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func (s *Service) topup(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	order, err := s.Topup(c.Request.Context(), userID, req.Amount)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, order)
}

type verifyTopupRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (s *Service) verifyTopup(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req verifyTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	w, err := s.VerifyTopup(c.Request.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, w)
}

type withdrawRequest struct {
	Amount string `json:"amount" binding:"required"`
	UpiID  string `json:"upi_id"`
}

func (s *Service) withdraw(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	w, err := s.Withdraw(c.Request.Context(), userID, req.Amount, req.UpiID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, w)
}
