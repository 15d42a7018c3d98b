package middleware

import (
	"net/http"
	"strings"

	"planning"
	"planning/pkg"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(cfg planning.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Mode == "dev" {
			c.Set("userID", uint(0))
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Bearer token format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := pkg.ValidateToken(parts[1], cfg.JWTConfig.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}
