package repository

import (
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"gorm.io/gorm"
)

// TemplateFilter 模板列表查询条件
type TemplateFilter struct {
	CategoryID *uint
	Status     string
	Keyword    string
	Page       int
	PageSize   int
}

// TemplateRepository 表单模板仓库
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(tpl *model.Template) error {
	return r.db.Create(tpl).Error
}

func (r *TemplateRepository) Update(tpl *model.Template) error {
	return r.db.Model(tpl).
		Select("category_id", "name", "description", "schema", "status", "version").
		Updates(map[string]interface{}{
			"category_id": tpl.CategoryID,
			"name":        tpl.Name,
			"description": tpl.Description,
			"schema":      tpl.Schema,
			"status":      tpl.Status,
			"version":     tpl.Version,
		}).Error
}

func (r *TemplateRepository) Delete(id uint) error {
	return r.db.Delete(&model.Template{}, "id = ?", id).Error
}

func (r *TemplateRepository) FindByID(id uint) (*model.Template, error) {
	var tpl model.Template
	err := r.db.Preload("Category").Where("id = ?", id).First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *TemplateRepository) List(filter TemplateFilter) (total int64, templates []model.Template, err error) {
	query := r.db.Model(&model.Template{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		query = query.Where("name LIKE ?", "%"+filter.Keyword+"%")
	}

	if err = query.Count(&total).Error; err != nil {
		return
	}

	if total == 0 {
		return 0, []model.Template{}, nil
	}

	if filter.PageSize > 0 && filter.Page > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	err = query.Preload("Category").Order("id ASC").Find(&templates).Error
	return
}

// DetachCategory 分类删除前解除模板关联
func (r *TemplateRepository) DetachCategory(categoryID uint) error {
	return r.db.Model(&model.Template{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil).Error
}

// TemplateCategoryRepository 模板分类仓库
type TemplateCategoryRepository struct {
	db *gorm.DB
}

func NewTemplateCategoryRepository(db *gorm.DB) *TemplateCategoryRepository {
	return &TemplateCategoryRepository{db: db}
}

// Transaction 在单个事务中执行，回调中的仓库绑定到该事务
func (r *TemplateCategoryRepository) Transaction(fn func(categories *TemplateCategoryRepository, templates *TemplateRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&TemplateCategoryRepository{db: tx}, &TemplateRepository{db: tx})
	})
}

func (r *TemplateCategoryRepository) Create(category *model.TemplateCategory) error {
	return r.db.Create(category).Error
}

func (r *TemplateCategoryRepository) Update(category *model.TemplateCategory) error {
	return r.db.Model(category).
		Select("name", "description").
		Updates(map[string]interface{}{
			"name":        category.Name,
			"description": category.Description,
		}).Error
}

func (r *TemplateCategoryRepository) Delete(id uint) error {
	return r.db.Delete(&model.TemplateCategory{}, "id = ?", id).Error
}

func (r *TemplateCategoryRepository) FindByID(id uint) (*model.TemplateCategory, error) {
	var category model.TemplateCategory
	err := r.db.Where("id = ?", id).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ExistsByName 名称是否已被其他分类使用
func (r *TemplateCategoryRepository) ExistsByName(name string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&model.TemplateCategory{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *TemplateCategoryRepository) List(page, pageSize int, keyword string) (total int64, categories []model.TemplateCategory, err error) {
	query := r.db.Model(&model.TemplateCategory{})

	if keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}

	if err = query.Count(&total).Error; err != nil {
		return
	}

	if total == 0 {
		return 0, []model.TemplateCategory{}, nil
	}

	if pageSize > 0 && page > 0 {
		offset := (page - 1) * pageSize
		query = query.Offset(offset).Limit(pageSize)
	}

	err = query.Order("id ASC").Find(&categories).Error
	return
}
