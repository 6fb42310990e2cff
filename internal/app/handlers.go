package app

import (
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/handler"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/router"
)

// InitializeHandlers 初始化所有处理器
func InitializeHandlers(services *Services) router.Handlers {
	return router.Handlers{
		Document: handler.NewDocumentHandler(services.Approvals),
		File:     handler.NewFileHandler(services.Access, services.Approvals),
		Template: handler.NewTemplateHandler(services.Templates),
		Category: handler.NewCategoryHandler(services.Templates),
	}
}
