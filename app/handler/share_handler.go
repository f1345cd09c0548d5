package handler

import (
	"net/http"

	"revshare/internal/service"
	"revshare/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ShareHandler handles revenue share configuration
type ShareHandler struct {
	shareService *service.ShareService
}

// NewShareHandler creates share handler
func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// List returns share configuration rows
// @Summary List revenue shares
// @Tags shares
// @Produce json
// @Router /api/shares [get]
func (h *ShareHandler) List(c *gin.Context) {
	shares, err := h.shareService.List(c.Request.Context(), c.Query("slot"))
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list shares: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load shares"})
		return
	}
	c.JSON(http.StatusOK, shares)
}

// Create stores a share configuration row (admin only)
// @Summary Create revenue share
// @Tags shares
// @Accept json
// @Produce json
// @Router /api/shares [post]
func (h *ShareHandler) Create(c *gin.Context) {
	var in service.CreateShareInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	share, err := h.shareService.Create(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, share)
}
