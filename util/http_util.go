// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cardly_errors "github.com/cardlyhq/cardly/errors"
	logger "github.com/cardlyhq/cardly/logging"
)

// RespondWithError writes a structured error response. Typed AppErrors
// keep their classification and metadata so clients can render upgrade
// prompts or precise messages without string matching.
func RespondWithError(c *gin.Context, err error) {
	appErr := cardly_errors.Translate(err)
	logger.Error(appErr.Message,
		zap.Error(err),
		zap.String("type", string(appErr.Type)),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(cardly_errors.HTTPStatus(appErr), appErr)
}

// RespondWithStatus writes a plain error message with an explicit code.
func RespondWithStatus(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// GetUserIDFromContext returns the authenticated user id set by the
// auth middleware, or an empty string.
func GetUserIDFromContext(c *gin.Context) string {
	userID, exists := c.Get("userID")
	if !exists {
		return ""
	}
	id, _ := userID.(string)
	return id
}
