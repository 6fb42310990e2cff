// Package handler 提供统一的 handler 导出
// 所有 handler 按功能模块分类到子目录中
package handler

import (
	documentHandler "github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/handler/document"
	templateHandler "github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/handler/template"
)

// Document handlers
type DocumentHandler = documentHandler.DocumentHandler
type FileHandler = documentHandler.FileHandler

var NewDocumentHandler = documentHandler.NewDocumentHandler
var NewFileHandler = documentHandler.NewFileHandler

// Template handlers
type TemplateHandler = templateHandler.TemplateHandler
type CategoryHandler = templateHandler.CategoryHandler

var NewTemplateHandler = templateHandler.NewTemplateHandler
var NewCategoryHandler = templateHandler.NewCategoryHandler
