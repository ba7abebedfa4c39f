package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unimark/attendance-api/internal/middleware"
	"github.com/unimark/attendance-api/internal/models"
	appErrors "github.com/unimark/attendance-api/pkg/errors"
	"github.com/unimark/attendance-api/pkg/response"
)

// claimsFromContext returns the authenticated caller's claims, or nil on
// unauthenticated requests such as public check-ins.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims returns the caller's claims, or writes a 401 response and
// reports false.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
