package handler

import (
	"errors"
	"net/http"
	"strconv"

	"revshare/internal/service"
	"revshare/pkg/logger"
	"revshare/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user administration (admin only routes)
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// List returns all users
// @Summary List users
// @Tags users
// @Produce json
// @Router /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// Create stores a new user and returns the one-time API key
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var in service.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, apiKey, err := h.userService.Create(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "api_key": apiKey})
}

// RotateKey issues a new API key for a user
// @Summary Rotate user API key
// @Tags users
// @Produce json
// @Router /api/users/{id}/rotate-key [post]
func (h *UserHandler) RotateKey(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	apiKey, err := h.userService.RotateAPIKey(c.Request.Context(), id)
	if errors.Is(err, mysql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to rotate key for user %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_key": apiKey})
}

// SetActive flips a user's active flag
// @Summary Activate or deactivate user
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users/{id}/active [put]
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var in struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.userService.SetActive(c.Request.Context(), id, *in.IsActive)
	if errors.Is(err, mysql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to update user %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}
