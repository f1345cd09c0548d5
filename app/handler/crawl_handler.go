package handler

import (
	"net/http"
	"time"

	"revshare/internal/coordinator"
	"revshare/pkg/logger"
	queue "revshare/pkg/queue/asynq"

	"github.com/gin-gonic/gin"
)

// CrawlHandler handles manual fetch triggers and status reads
type CrawlHandler struct {
	queue *queue.Manager
	coord *coordinator.Coordinator
}

// NewCrawlHandler creates crawl handler
func NewCrawlHandler(q *queue.Manager, coord *coordinator.Coordinator) *CrawlHandler {
	return &CrawlHandler{queue: q, coord: coord}
}

// TriggerRequest is the manual trigger body.
type TriggerRequest struct {
	Date          string `json:"date"`
	FirstPageOnly bool   `json:"first_page_only"`
}

// Trigger enqueues a fetch cycle (admin only). The trigger slot is checked
// up front for a fast 409; the worker re-checks before running.
// @Summary Trigger a fetch cycle
// @Tags crawl
// @Accept json
// @Produce json
// @Router /api/trigger-crawl [post]
func (h *CrawlHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var fetchDate time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		fetchDate = parsed
	}

	if h.coord.Snapshot().Running {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl is already running"})
		return
	}

	if err := h.queue.EnqueueFetchCycle(c.Request.Context(), fetchDate, req.FirstPageOnly); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to enqueue fetch cycle: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue crawl"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "crawl enqueued"})
}

// Status returns the current trigger state
// @Summary Get crawl status
// @Tags crawl
// @Produce json
// @Router /api/crawl-status [get]
func (h *CrawlHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.Snapshot())
}
