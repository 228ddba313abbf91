package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/service/batches"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
)

// InventoryHandler exposes farms, the stock ledger and batches.
type InventoryHandler struct {
	inventory *inventory.Service
	batches   *batches.Service
	logger    *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(inv *inventory.Service, bs *batches.Service, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{inventory: inv, batches: bs, logger: logger}
}

// Register mounts the routes on rg.
func (h *InventoryHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/farms", h.CreateFarm)
	rg.GET("/farms", h.ListFarms)
	rg.GET("/farms/:id", h.GetFarm)
	rg.GET("/farms/:id/snapshot", h.Snapshot)
	rg.POST("/farms/:id/movements", h.RecordMovement)
	rg.GET("/farms/:id/batches/:batchId/stock", h.AvailableStock)
	rg.PUT("/farms/:id/batches/:batchId/stock", h.AdjustStock)

	rg.POST("/batches", h.CreateBatch)
	rg.GET("/batches/:id", h.GetBatch)
	rg.PUT("/batches/:id/farm", h.ReassignBatch)
	rg.PATCH("/batches/:id/status", h.UpdateBatchStatus)
	rg.DELETE("/batches/:id", h.DeleteBatch)
}

// CreateFarm registers a farm.
func (h *InventoryHandler) CreateFarm(c *gin.Context) {
	var req inventory.FarmInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	farm, err := h.inventory.CreateFarm(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, farm)
}

// ListFarms lists the tenant's farms.
func (h *InventoryHandler) ListFarms(c *gin.Context) {
	farms, err := h.inventory.ListFarms(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farms)
}

// GetFarm returns one farm.
func (h *InventoryHandler) GetFarm(c *gin.Context) {
	farm, err := h.inventory.GetFarm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farm)
}

// Snapshot returns the farm inventory snapshot.
func (h *InventoryHandler) Snapshot(c *gin.Context) {
	snap, err := h.inventory.FarmSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RecordMovement appends a ledger row for the farm.
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req inventory.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	req.FarmID = c.Param("id")

	movement, err := h.inventory.RecordMovement(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

// AvailableStock returns the replayed stock for a (farm, batch) pair.
func (h *InventoryHandler) AvailableStock(c *gin.Context) {
	stock, err := h.inventory.AvailableStock(c.Request.Context(), c.Param("id"), c.Param("batchId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farm_id": c.Param("id"), "batch_id": c.Param("batchId"), "available": stock})
}

type adjustRequest struct {
	Level  *int   `json:"level" binding:"required"`
	Reason string `json:"reason"`
}

// AdjustStock overrides the stock level for a (farm, batch) pair.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	movement, err := h.inventory.AdjustStock(c.Request.Context(), c.Param("id"), c.Param("batchId"), *req.Level, req.Reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

// CreateBatch registers a purchased batch.
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req batches.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// GetBatch returns a live batch.
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type reassignRequest struct {
	FarmID string `json:"farm_id" binding:"required"`
}

// ReassignBatch moves a batch to another farm.
func (h *InventoryHandler) ReassignBatch(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	batch, err := h.batches.Reassign(c.Request.Context(), c.Param("id"), req.FarmID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// UpdateBatchStatus changes lifecycle or health status.
func (h *InventoryHandler) UpdateBatchStatus(c *gin.Context) {
	var req batches.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	batch, err := h.batches.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DeleteBatch soft-deletes a batch.
func (h *InventoryHandler) DeleteBatch(c *gin.Context) {
	if err := h.batches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
