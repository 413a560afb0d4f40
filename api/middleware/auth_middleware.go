// api/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/auth"
	"github.com/pharmap/pharmap-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// AuthMiddleware creates a gin middleware for checking JWT authentication.
// It depends on the application configuration for the JWT secret.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			err := errors.New("authorization header required")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			err := errors.New("authorization header format must be Bearer {token}")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		tokenString := parts[1]

		claims, err := auth.ValidateJWT(tokenString, cfg.JWTSecret)
		if err != nil {
			customLog.Printf("AuthMiddleware: Token validation failed: %v", err)
			errMsg := "Invalid token"
			switch {
			case errors.Is(err, auth.ErrTokenMalformed):
				errMsg = err.Error()
			case errors.Is(err, auth.ErrTokenExpired):
				errMsg = err.Error()
			}

			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		// Token is valid! Stash identity in the context
		c.Set("username", claims.Username)
		c.Set("isAdmin", claims.IsAdmin)

		c.Next()
	}
}

// AdminMiddleware rejects requests whose token does not carry the admin
// claim. Must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isAdmin") {
			_ = c.Error(auth.ErrAdminRequired)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": auth.ErrAdminRequired.Error()})
			return
		}
		c.Next()
	}
}
