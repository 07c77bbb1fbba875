package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	appErrors "github.com/noah-isme/bloodbank-api/pkg/errors"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// RequireRoles admits callers whose token carries one of roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// StaffOnly admits both staff and admins.
func StaffOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleStaff, models.RoleAdmin)
}

// AdminOnly admits admins.
func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
