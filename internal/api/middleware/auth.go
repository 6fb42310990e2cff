package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

// 上下文键
const (
	ContextEmployeeID = "employee_id"
	ContextEmail      = "email"
	ContextRole       = "role"
	contextIdentity   = "identity"
)

// AuthMiddleware JWT认证中间件
// 身份只取自签名有效的令牌，X-User-* 请求头不被信任
func AuthMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "缺少Authorization Header"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "Token格式错误：Authorization header 必须以 'Bearer ' 开头"))
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			logger.Debugf("[AuthMiddleware] Token验证失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "Token无效或已过期"))
			return
		}

		identity := claims.Identity()
		c.Set(contextIdentity, identity)
		c.Set(ContextEmployeeID, identity.EmployeeID)
		c.Set(ContextEmail, identity.Email)
		c.Set(ContextRole, identity.Role)

		c.Next()
	}
}

// CurrentIdentity 取出认证中间件写入的身份
func CurrentIdentity(c *gin.Context) (model.Identity, bool) {
	v, exists := c.Get(contextIdentity)
	if !exists {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
