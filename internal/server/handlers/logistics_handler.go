package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/service/delivery"
	"github.com/mamadbah2/supplychain/internal/service/distribution"
)

// LogisticsHandler exposes distributions and deliveries.
type LogisticsHandler struct {
	distributions *distribution.Service
	deliveries    *delivery.Service
	logger        *zap.Logger
}

// NewLogisticsHandler constructs the logistics HTTP adapter.
func NewLogisticsHandler(dist *distribution.Service, del *delivery.Service, logger *zap.Logger) *LogisticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogisticsHandler{distributions: dist, deliveries: del, logger: logger}
}

// Register mounts the routes on rg.
func (h *LogisticsHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/distributions", h.CreateDistribution)
	rg.GET("/distributions/:id", h.GetDistribution)
	rg.PATCH("/distributions/:id/status", h.UpdateDistributionStatus)

	rg.POST("/deliveries", h.CreateDelivery)
	rg.GET("/deliveries/:id", h.GetDelivery)
	rg.PATCH("/deliveries/:id", h.UpdateDelivery)
}

// CreateDistribution schedules a trip.
func (h *LogisticsHandler) CreateDistribution(c *gin.Context) {
	var req distribution.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	dist, effects, err := h.distributions.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"distribution": dist, "side_effects": sideEffects(effects)})
}

// GetDistribution returns one trip.
func (h *LogisticsHandler) GetDistribution(c *gin.Context) {
	dist, err := h.distributions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

type distributionStatusRequest struct {
	Status models.DistributionStatus `json:"status" binding:"required"`
}

// UpdateDistributionStatus moves a trip along its lifecycle.
func (h *LogisticsHandler) UpdateDistributionStatus(c *gin.Context) {
	var req distributionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	dist, err := h.distributions.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

// CreateDelivery opens a delivery for one shop.
func (h *LogisticsHandler) CreateDelivery(c *gin.Context) {
	var req delivery.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	d, err := h.deliveries.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GetDelivery returns one delivery.
func (h *LogisticsHandler) GetDelivery(c *gin.Context) {
	d, err := h.deliveries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateDelivery records verification and status.
func (h *LogisticsHandler) UpdateDelivery(c *gin.Context) {
	var req delivery.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	d, err := h.deliveries.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
