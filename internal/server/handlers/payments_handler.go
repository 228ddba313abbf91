package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/service/payments"
)

// PaymentsHandler exposes sales and payments.
type PaymentsHandler struct {
	payments *payments.Service
	logger   *zap.Logger
}

// NewPaymentsHandler constructs the payments HTTP adapter.
func NewPaymentsHandler(svc *payments.Service, logger *zap.Logger) *PaymentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentsHandler{payments: svc, logger: logger}
}

// Register mounts the routes on rg.
func (h *PaymentsHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/sales", h.CreateSale)
	rg.GET("/sales/:id", h.GetSale)
	rg.GET("/sales/:id/balance", h.Balance)
	rg.POST("/sales/:id/payments", h.RecordPayment)
	rg.POST("/sales/:id/payments/gateway", h.GatewayPayment)
	rg.POST("/sales/:id/payment-intents", h.CreateIntent)
	rg.POST("/sales/:id/payment-intents/:intentId/confirm", h.ConfirmIntent)
}

// CreateSale opens a sale.
func (h *PaymentsHandler) CreateSale(c *gin.Context) {
	var req payments.CreateSaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	sale, err := h.payments.CreateSale(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// GetSale returns one sale.
func (h *PaymentsHandler) GetSale(c *gin.Context) {
	sale, err := h.payments.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Balance returns the derived balance of a sale.
func (h *PaymentsHandler) Balance(c *gin.Context) {
	balance, err := h.payments.Balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// RecordPayment records a manual payment.
func (h *PaymentsHandler) RecordPayment(c *gin.Context) {
	var req payments.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	payment, err := h.payments.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// GatewayPayment charges the card gateway.
func (h *PaymentsHandler) GatewayPayment(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	payment, err := h.payments.ProcessGatewayPayment(c.Request.Context(), c.Param("id"), req.Amount, req.Description)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// CreateIntent reserves funds with the gateway.
func (h *PaymentsHandler) CreateIntent(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	intent, err := h.payments.CreatePaymentIntent(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id":     intent.ID,
		"client_secret": intent.ClientSecret,
		"amount":        intent.Amount,
		"status":        intent.Status,
	})
}

// ConfirmIntent confirms an intent and settles the remaining balance.
func (h *PaymentsHandler) ConfirmIntent(c *gin.Context) {
	payment, err := h.payments.ConfirmPayment(c.Request.Context(), c.Param("id"), c.Param("intentId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}
