package app

import (
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"gorm.io/gorm"
)

// Repositories 仓库集合
type Repositories struct {
	Document         *repository.DocumentRepository
	Template         *repository.TemplateRepository
	TemplateCategory *repository.TemplateCategoryRepository
}

// InitializeRepositories 初始化所有仓库
func InitializeRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Document:         repository.NewDocumentRepository(db),
		Template:         repository.NewTemplateRepository(db),
		TemplateCategory: repository.NewTemplateCategoryRepository(db),
	}
}
