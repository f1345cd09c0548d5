package handler

import (
	"errors"
	"net/http"
	"strconv"

	"revshare/app/middleware"
	"revshare/internal/formula"
	"revshare/internal/service"
	"revshare/pkg/logger"
	"revshare/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// FormulaHandler handles formula management
type FormulaHandler struct {
	formulaService *service.FormulaService
}

// NewFormulaHandler creates formula handler
func NewFormulaHandler(formulaService *service.FormulaService) *FormulaHandler {
	return &FormulaHandler{formulaService: formulaService}
}

func formulaID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid formula id"})
		return 0, false
	}
	return id, true
}

// List returns formulas, optionally filtered by is_active
// @Summary List formulas
// @Tags formulas
// @Produce json
// @Router /api/formulas [get]
func (h *FormulaHandler) List(c *gin.Context) {
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_active"})
			return
		}
		isActive = &v
	}

	formulas, err := h.formulaService.List(c.Request.Context(), isActive)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list formulas: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load formulas"})
		return
	}
	c.JSON(http.StatusOK, formulas)
}

// Get returns one formula
// @Summary Get formula
// @Tags formulas
// @Produce json
// @Router /api/formulas/{id} [get]
func (h *FormulaHandler) Get(c *gin.Context) {
	id, ok := formulaID(c)
	if !ok {
		return
	}

	f, err := h.formulaService.Get(c.Request.Context(), id)
	if errors.Is(err, mysql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "formula not found"})
		return
	}
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get formula %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load formula"})
		return
	}
	c.JSON(http.StatusOK, f)
}

// Create stores a new formula (admin only)
// @Summary Create formula
// @Tags formulas
// @Accept json
// @Produce json
// @Router /api/formulas [post]
func (h *FormulaHandler) Create(c *gin.Context) {
	var in service.CreateFormulaInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if user := middleware.CurrentUser(c); user != nil {
		in.CreatedBy = user.Username
	}

	f, err := h.formulaService.Create(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Update applies a partial formula update (admin only)
// @Summary Update formula
// @Tags formulas
// @Accept json
// @Produce json
// @Router /api/formulas/{id} [put]
func (h *FormulaHandler) Update(c *gin.Context) {
	id, ok := formulaID(c)
	if !ok {
		return
	}
	var in service.UpdateFormulaInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.formulaService.Update(c.Request.Context(), id, in)
	if errors.Is(err, mysql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "formula not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f)
}

// Deactivate soft-deletes a formula (admin only)
// @Summary Deactivate formula
// @Tags formulas
// @Router /api/formulas/{id} [delete]
func (h *FormulaHandler) Deactivate(c *gin.Context) {
	id, ok := formulaID(c)
	if !ok {
		return
	}

	err := h.formulaService.Deactivate(c.Request.Context(), id)
	if errors.Is(err, mysql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "formula not found"})
		return
	}
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to deactivate formula %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate formula"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "formula deactivated"})
}

// Compute runs one formula, optionally for a single date (admin only)
// @Summary Compute formula
// @Tags formulas
// @Produce json
// @Router /api/formulas/{id}/compute [post]
func (h *FormulaHandler) Compute(c *gin.Context) {
	id, ok := formulaID(c)
	if !ok {
		return
	}
	computeForDate, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	result := h.formulaService.Compute(c.Request.Context(), id, computeForDate)
	switch result.Status {
	case formula.StatusNotFound:
		c.JSON(http.StatusNotFound, result)
	case formula.StatusInactive:
		c.JSON(http.StatusConflict, result)
	case formula.StatusFailed:
		c.JSON(http.StatusInternalServerError, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// ComputeAll runs every active formula (admin only)
// @Summary Compute all formulas
// @Tags formulas
// @Produce json
// @Router /api/formulas/compute-all [post]
func (h *FormulaHandler) ComputeAll(c *gin.Context) {
	computeForDate, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	results, err := h.formulaService.ComputeAll(c.Request.Context(), computeForDate)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to compute formulas: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute formulas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
