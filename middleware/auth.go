package middleware

import (
	"net/http"
	"strings"

	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID     = "user_id"
	ContextUserRole   = "user_role"
	ContextUserEmail  = "user_email"
	ContextBusinessID = "business_id"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		if claims.Email != "" {
			c.Set(ContextUserEmail, claims.Email)
		}
		if claims.BusinessID != "" {
			c.Set(ContextBusinessID, claims.BusinessID)
		}
		c.Next()
	}
}

// RequireRoles allows the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(ContextUserRole)] {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// BusinessMiddleware requires a business_id in the token.
func BusinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextBusinessID) == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "No business associated with this account"})
			c.Abort()
			return
		}
		c.Next()
	}
}
