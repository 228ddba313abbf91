package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/service/orders"
)

// OrdersHandler exposes shop orders.
type OrdersHandler struct {
	orders *orders.Service
	logger *zap.Logger
}

// NewOrdersHandler constructs the orders HTTP adapter.
func NewOrdersHandler(svc *orders.Service, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{orders: svc, logger: logger}
}

// Register mounts the routes on rg.
func (h *OrdersHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/orders", h.Create)
	rg.GET("/orders/:id", h.Get)
	rg.POST("/orders/:id/approve", h.Approve)
	rg.POST("/orders/:id/reject", h.Reject)
	rg.PUT("/orders/:id/fulfillment", h.UpdateFulfillment)
	rg.POST("/orders/:id/cancel", h.Cancel)
}

// Create places an order.
func (h *OrdersHandler) Create(c *gin.Context) {
	var req orders.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	order, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Get returns one order.
func (h *OrdersHandler) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Approve accepts a pending order.
func (h *OrdersHandler) Approve(c *gin.Context) {
	order, effects, err := h.orders.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "side_effects": sideEffects(effects)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject declines a pending order.
func (h *OrdersHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	order, effects, err := h.orders.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "side_effects": sideEffects(effects)})
}

type fulfillmentRequest struct {
	Items []orders.FulfillmentInput `json:"items"`
}

// UpdateFulfillment records fulfilled quantities.
func (h *OrdersHandler) UpdateFulfillment(c *gin.Context) {
	var req fulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	order, effects, err := h.orders.UpdateFulfillment(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "side_effects": sideEffects(effects)})
}

// Cancel cancels an order.
func (h *OrdersHandler) Cancel(c *gin.Context) {
	order, err := h.orders.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
