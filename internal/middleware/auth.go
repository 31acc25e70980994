// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// UserKey 是 gin 上下文中保存调用方身份的键。
const UserKey = "user"

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它从请求头中提取 token，验证后把 model.User 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Falta la cabecera de autorización", "data": nil})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Formato de autorización no válido", "data": nil})
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Warnf("[Auth] token 校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Sesión no válida o caducada", "data": nil})
			return
		}

		c.Set(UserKey, UserFromClaims(claims))
		c.Set("claims", claims)
		c.Next()
	}
}

// UserFromClaims 把 token 中的身份转换为调用方。
func UserFromClaims(claims *token.CustomClaims) model.User {
	return model.User{ID: claims.Code, Name: claims.Name, Role: claims.Role}
}

// CurrentUser 读取 AuthMiddleware 写入的调用方身份。
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}
