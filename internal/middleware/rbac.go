package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
	"github.com/noah-isme/learning-analytics-api/pkg/response"
)

// AnalyticsReaders may read every analytics endpoint.
var AnalyticsReaders = []models.AdminRole{
	models.RoleMasterAdmin,
	models.RoleSuperAdmin,
	models.RoleSupportAdmin,
	models.RoleCohortAdmin,
}

// CacheOperators may purge cached analytics.
var CacheOperators = []models.AdminRole{
	models.RoleMasterAdmin,
	models.RoleSuperAdmin,
}

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.AdminRole) gin.HandlerFunc {
	allowed := make(map[models.AdminRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
