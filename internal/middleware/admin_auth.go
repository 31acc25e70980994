package middleware

import (
	"net/http"

	"hr-assistant-go/internal/rbac"

	"github.com/gin-gonic/gin"
)

// FullAccessMiddleware 只放行拥有全量数据访问权限的角色。
// 此中间件必须在 AuthMiddleware 之后使用。
func FullAccessMiddleware(policy *rbac.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "No se pudo identificar al usuario", "data": nil})
			return
		}
		if policy.AccessLevel(user.Role) != rbac.FullAccess {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "No tienes permiso para esta operación", "data": nil})
			return
		}
		c.Next()
	}
}
