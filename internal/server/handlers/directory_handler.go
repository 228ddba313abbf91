package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/service/directory"
	"github.com/mamadbah2/supplychain/internal/service/notify"
)

// DirectoryHandler exposes users, shops and notification inboxes.
type DirectoryHandler struct {
	directory *directory.Service
	inbox     *notify.StoreSink
	logger    *zap.Logger
}

// NewDirectoryHandler constructs the directory HTTP adapter.
func NewDirectoryHandler(dir *directory.Service, inbox *notify.StoreSink, logger *zap.Logger) *DirectoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryHandler{directory: dir, inbox: inbox, logger: logger}
}

// Register mounts the routes on rg.
func (h *DirectoryHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/users", h.CreateUser)
	rg.GET("/users/:id", h.GetUser)
	rg.GET("/users/:id/notifications", h.Notifications)
	rg.POST("/shops", h.CreateShop)
	rg.GET("/shops/:id", h.GetShop)
}

// CreateUser registers a user.
func (h *DirectoryHandler) CreateUser(c *gin.Context) {
	var req directory.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	user, err := h.directory.CreateUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetUser returns one user.
func (h *DirectoryHandler) GetUser(c *gin.Context) {
	user, err := h.directory.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Notifications returns the newest notifications of a user.
func (h *DirectoryHandler) Notifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.inbox.Inbox(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateShop registers a shop.
func (h *DirectoryHandler) CreateShop(c *gin.Context) {
	var req directory.ShopInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, err)
		return
	}
	shop, err := h.directory.CreateShop(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

// GetShop returns one shop.
func (h *DirectoryHandler) GetShop(c *gin.Context) {
	shop, err := h.directory.GetShop(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}
