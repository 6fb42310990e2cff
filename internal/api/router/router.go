package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/handler"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/middleware"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Document *handler.DocumentHandler
	File     *handler.FileHandler
	Template *handler.TemplateHandler
	Category *handler.CategoryHandler
}

// HealthFunc 健康检查，返回 nil 表示依赖正常
type HealthFunc func() error

func Setup(
	h Handlers,
	tokens *auth.TokenService,
	enforcer middleware.PermissionEnforcer,
	health HealthFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RecoveryMiddleware())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())
	r.Use(middleware.MetricsMiddleware())

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		documents := api.Group("/documents")
		{
			documents.GET("", h.Document.ListDocuments)
			documents.POST("", h.Document.CreateDocument)
			documents.GET("/:id", h.Document.GetDocument)
			documents.PUT("/:id", h.Document.UpdateDocument)
			documents.DELETE("/:id", h.Document.DeleteDocument)

			// 状态流转
			documents.POST("/:id/submit", h.Document.Submit)
			documents.POST("/:id/schedule", h.Document.Schedule)
			documents.POST("/:id/cancel-schedule", h.Document.CancelSchedule)
			documents.POST("/:id/approve", h.Document.Approve)
			documents.POST("/:id/reject", h.Document.Reject)
			documents.POST("/:id/recall", h.Document.Recall)
			documents.POST("/:id/resubmit", h.Document.Resubmit)
			documents.POST("/:id/remind", h.Document.Remind)

			// 参阅人
			documents.POST("/:id/references", h.Document.AddReference)
			documents.DELETE("/:id/references/:employeeId", h.Document.RemoveReference)

			// 附件
			documents.POST("/:id/attachments/upload-url", h.File.UploadURL)
			documents.POST("/:id/attachments", h.File.RegisterAttachment)
			documents.DELETE("/:id/attachments/:attachmentId", h.File.DeleteAttachment)
			documents.GET("/:id/files/preview", h.File.Preview)
			documents.GET("/:id/files/download", h.File.Download)
		}

		// 模板维护需要管理员角色，见 casbin.DefaultPolicies
		managed := api.Group("")
		managed.Use(middleware.PermissionMiddleware(enforcer))
		{
			categories := managed.Group("/template-categories")
			{
				categories.GET("", h.Category.ListCategories)
				categories.POST("", h.Category.CreateCategory)
				categories.GET("/:id", h.Category.GetCategory)
				categories.PUT("/:id", h.Category.UpdateCategory)
				categories.DELETE("/:id", h.Category.DeleteCategory)
			}

			templates := managed.Group("/templates")
			{
				templates.GET("", h.Template.ListTemplates)
				templates.POST("", h.Template.CreateTemplate)
				templates.GET("/:id", h.Template.GetTemplate)
				templates.PUT("/:id", h.Template.UpdateTemplate)
				templates.DELETE("/:id", h.Template.DeleteTemplate)
				templates.POST("/:id/validate", h.Template.ValidateForm)
			}
		}
	}

	// Prometheus Metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (支持 GET 和 HEAD 方法)
	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "type": "approval-server"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource was not found.",
		})
	})

	return r
}
