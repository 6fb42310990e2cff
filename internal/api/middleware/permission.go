package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/casbin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

// PermissionEnforcer casbin 执行器
type PermissionEnforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// PermissionMiddleware Casbin权限中间件
// 以令牌中的角色为主体，路由模板（如 /api/templates/:id）为对象
func PermissionMiddleware(enforcer PermissionEnforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "未找到用户信息"))
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		allowed, err := enforcer.Enforce(casbin.Subject(identity.Role), path, c.Request.Method)
		if err != nil {
			logger.Errorf("[Permission] Enforce failed for %s %s: %v", c.Request.Method, path, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, model.Error(500, "权限校验失败"))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, model.Error(403, "权限不足"))
			return
		}
		c.Next()
	}
}
