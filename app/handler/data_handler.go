package handler

import (
	"net/http"
	"strconv"
	"time"

	"revshare/app/middleware"
	"revshare/internal/service"
	"revshare/pkg/logger"
	"revshare/pkg/store/mysql"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 2000

// DataHandler serves the read API
type DataHandler struct {
	dataService *service.DataService
}

// NewDataHandler creates data handler
func NewDataHandler(dataService *service.DataService) *DataHandler {
	return &DataHandler{dataService: dataService}
}

// parseDateParam parses an optional YYYY-MM-DD query parameter. The bool
// is false when the parameter is malformed (an error response was sent).
func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", expected YYYY-MM-DD"})
		return nil, false
	}
	return &parsed, true
}

func parseLimitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 {
		limit = 100
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetProcessedData serves processed summaries, reshaped per caller role
// @Summary Get processed revenue data
// @Tags data
// @Produce json
// @Param fetch_date query string false "Single day (YYYY-MM-DD)"
// @Param from_date query string false "Range start (inclusive)"
// @Param to_date query string false "Range end (inclusive)"
// @Param slot query string false "Slot name"
// @Success 200 {array} service.ProcessedView
// @Router /api/data [get]
func (h *DataHandler) GetProcessedData(c *gin.Context) {
	fetchDate, ok := parseDateParam(c, "fetch_date")
	if !ok {
		return
	}
	fromDate, ok := parseDateParam(c, "from_date")
	if !ok {
		return
	}
	toDate, ok := parseDateParam(c, "to_date")
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(c)

	filter := mysql.ProcessedRevenueFilter{
		FetchDate: fetchDate,
		FromDate:  fromDate,
		ToDate:    toDate,
		Slot:      c.Query("slot"),
		Limit:     limit,
		Offset:    offset,
	}

	user := middleware.CurrentUser(c)
	isAdmin := user != nil && user.IsAdmin()

	rows, err := h.dataService.ListProcessed(c.Request.Context(), filter, isAdmin)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list processed data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load data"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetRawData serves raw scraped rows (admin only)
// @Summary Get raw revenue rows
// @Tags data
// @Produce json
// @Router /api/raw-data [get]
func (h *DataHandler) GetRawData(c *gin.Context) {
	fetchDate, ok := parseDateParam(c, "fetch_date")
	if !ok {
		return
	}
	fromDate, ok := parseDateParam(c, "from_date")
	if !ok {
		return
	}
	toDate, ok := parseDateParam(c, "to_date")
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(c)

	rows, err := h.dataService.ListRaw(c.Request.Context(), mysql.RawRevenueFilter{
		FetchDate: fetchDate,
		FromDate:  fromDate,
		ToDate:    toDate,
		Channel:   c.Query("channel"),
		TimeUnit:  c.Query("time_unit"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list raw data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load data"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetComputedMetrics serves row-level metric values
// @Summary Get computed metrics
// @Tags metrics
// @Produce json
// @Router /api/computed-metrics [get]
func (h *DataHandler) GetComputedMetrics(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	formulaID, _ := strconv.ParseInt(c.Query("formula_id"), 10, 64)
	rawDataID, _ := strconv.ParseInt(c.Query("raw_data_id"), 10, 64)

	metrics, err := h.dataService.ListComputed(c.Request.Context(), mysql.ComputedMetricFilter{
		RawDataID:  rawDataID,
		FormulaID:  formulaID,
		MetricName: c.Query("metric_name"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list computed metrics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GetAggregatedMetrics serves group-level metric values
// @Summary Get aggregated metrics
// @Tags metrics
// @Produce json
// @Router /api/aggregated-metrics [get]
func (h *DataHandler) GetAggregatedMetrics(c *gin.Context) {
	fetchDate, ok := parseDateParam(c, "fetch_date")
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(c)

	metrics, err := h.dataService.ListAggregated(c.Request.Context(), mysql.AggregatedMetricFilter{
		Channel:    c.Query("channel"),
		TimeUnit:   c.Query("time_unit"),
		FetchDate:  fetchDate,
		MetricName: c.Query("metric_name"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list aggregated metrics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GetFetchLogs serves fetch cycle history (admin only)
// @Summary Get fetch logs
// @Tags data
// @Produce json
// @Router /api/fetch-logs [get]
func (h *DataHandler) GetFetchLogs(c *gin.Context) {
	fetchDate, ok := parseDateParam(c, "fetch_date")
	if !ok {
		return
	}
	limit, _ := parseLimitOffset(c)

	logs, err := h.dataService.ListFetchLogs(c.Request.Context(), mysql.FetchLogFilter{
		FetchDate: fetchDate,
		Status:    dbmodel.FetchLogStatus(c.Query("status")),
		Limit:     limit,
	})
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list fetch logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load fetch logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
