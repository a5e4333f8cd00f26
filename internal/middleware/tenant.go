package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantGuard ensures an authenticated tenant is on the context before any
// document route runs. AuthMiddleware sets the tenant id; a missing or nil
// id means the token carried no tenant binding.
func TenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, exists := c.Get(ContextKeyTenantID)
		tenantID, ok := val.(uuid.UUID)
		if !exists || !ok || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "tenant context required"},
			})
			return
		}
		c.Next()
	}
}
