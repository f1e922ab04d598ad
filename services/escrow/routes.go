package escrow

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

	authed.GET("/events/:id/escrow", p.Service.getByEvent)
	authed.GET("/events/:id/payments", p.Service.paymentsByEvent)

	payments := authed.Group("/payments/escrow")
	payments.POST("", p.Service.fund)
	payments.POST("/verify", p.Service.confirmFunding)
	payments.POST("/:event_id/release", p.Service.release)
}

func (s *Service) getByEvent(c *gin.Context) {
	contract, err := s.GetByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, contract)
}

func (s *Service) paymentsByEvent(c *gin.Context) {
	payments, err := s.PaymentsByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, payments)
}

func (s *Service) fund(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var in FundInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	contract, err := s.Fund(c.Request.Context(), hostID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, contract)
}

type confirmFundingRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (s *Service) confirmFunding(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req confirmFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, respond.BadBody(err))
		return
	}

	contract, err := s.ConfirmFunding(c.Request.Context(), hostID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, contract)
}

func (s *Service) release(c *gin.Context) {
	hostID, err := middleware.UserID(c)
	if err != nil {
		respond.Error(c, err)
		return
	}

	contract, err := s.Release(c.Request.Context(), hostID, c.Param("event_id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, contract)
}
