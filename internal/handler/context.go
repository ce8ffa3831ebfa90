package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/attendly/fieldforce-api/internal/middleware"
	"github.com/attendly/fieldforce-api/internal/models"
)

func currentClaims(c *gin.Context) *models.JWTClaims {
	raw, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := raw.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := currentClaims(c); claims != nil {
		return claims.EmployeeID
	}
	return ""
}
