// Package respond contains the error responses shared by all handlers
package respond

import (
	"easyforms/forms-api/internal/verification"
	"easyforms/forms-api/pkg/token"
	"easyforms/forms-api/pkg/validators"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}

// Internal logs err and answers with a generic 500
func Internal(c *gin.Context, logMsg string, err error) {
	requestID := c.GetString("requestID")

	zap.L().Error(logMsg, zap.Error(err), zap.String("requestID", requestID))

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})
}

// Invalid answers a failed validation with the offending field if known
func Invalid(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	zap.L().Debug("Validation failed", zap.Error(err), zap.String("requestID", requestID))

	var fe *validators.FieldError
	if errors.As(err, &fe) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"field":     fe.Field,
			"message":   fe.Err.Error(),
			"requestID": requestID,
		})
		return
	}

	Error(c, http.StatusBadRequest, err.Error())
}

// Bind decodes the JSON body into dst and answers 400 when it can't.
func Bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		Error(c, http.StatusBadRequest, "Invalid request body")
		return false
	}

	return true
}

// TokenError answers a failed token redemption. Malformed and used tokens
// are 400, expired ones 403 and failures to apply the change 500.
func TokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrInvalidToken):
		Error(c, http.StatusBadRequest, "Token invalid")
	case errors.Is(err, verification.ErrTokenNotFound):
		Error(c, http.StatusBadRequest, "Token invalid or already used")
	case errors.Is(err, token.ErrTokenExpired):
		Error(c, http.StatusForbidden, "Token expired")
	case errors.Is(err, verification.ErrPersistence):
		Internal(c, "Failed to apply token changes", err)
	default:
		Internal(c, "Failed to redeem token", err)
	}
}
