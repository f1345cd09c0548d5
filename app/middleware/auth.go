package middleware

import (
	"net/http"

	"revshare/internal/service"
	"revshare/pkg/config"
	"revshare/pkg/logger"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/gin-gonic/gin"
)

const userContextKey = "auth_user"

// APIKeyAuth resolves the X-API-Key header to a user. The configured
// bootstrap admin key short-circuits the user table so the very first
// admin can be created through the API.
func APIKeyAuth(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		if bootstrap := config.GlobalConfig.Server.AdminAPIKey; bootstrap != "" && apiKey == bootstrap {
			c.Set(userContextKey, &dbmodel.User{
				Username: "bootstrap-admin",
				Role:     dbmodel.RoleAdmin,
				IsActive: true,
			})
			c.Next()
			return
		}

		user, err := users.ResolveAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, invalid API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after APIKeyAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RequireRead rejects callers without data read access. Must run after
// APIKeyAuth.
func RequireRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.CanRead() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "data access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by APIKeyAuth, or nil.
func CurrentUser(c *gin.Context) *dbmodel.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := v.(*dbmodel.User)
	if !ok {
		return nil
	}
	return user
}
