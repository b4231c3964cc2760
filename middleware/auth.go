// middleware/auth.go

package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cardlyhq/cardly/db"
	logger "github.com/cardlyhq/cardly/logging"
)

// AuthMiddleware resolves the bearer token to a session stored in
// Redis and places the authenticated user id in the request context
// under "userID".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			logger.Warn("No Authorization token provided", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		userID, err := db.RedisClient.Get(c, fmt.Sprintf("session:%s", token)).Result()
		if err == redis.Nil {
			logger.Warn("Unknown session token", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		} else if err != nil {
			logger.Error("Session lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Session lookup failed"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
