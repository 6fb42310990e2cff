package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

// RecoveryMiddleware 自定义错误恢复中间件，打印详细的错误信息
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}

		fullURL := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			fullURL = fmt.Sprintf("%s?%s", fullURL, c.Request.URL.RawQuery)
		}

		employeeID := ""
		if uid, exists := c.Get(ContextEmployeeID); exists {
			employeeID = fmt.Sprintf("%v", uid)
		}

		logger.Errorf(
			"Panic recovered: %v\n"+
				"  Request: %s %s\n"+
				"  Client IP: %s\n"+
				"  Employee ID: %s\n"+
				"  Stack Trace:\n%s",
			err,
			c.Request.Method,
			fullURL,
			c.ClientIP(),
			employeeID,
			string(debug.Stack()),
		)

		// 不向调用方暴露内部错误
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.Error(500, "服务器内部错误"))
	})
}
