package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/fieldforce-api/internal/models"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/response"
)

// Require gates a route behind a single capability. Capability resolution
// happens here and nowhere else; handlers and services trust the claims that
// reach them.
func Require(cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !claims.Role.Allows(cap) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
