// Package template 管理表单模板及其分类，模板以 JSON Schema 描述表单
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/xeipuuv/gojsonschema"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CategoryInput 分类内容
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// TemplateInput 模板内容
type TemplateInput struct {
	CategoryID  *uint           `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema" validate:"required"`
	Status      string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// TemplateQuery 模板列表参数
type TemplateQuery struct {
	CategoryID *uint  `form:"category_id"`
	Status     string `form:"status"`
	Keyword    string `form:"keyword"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// Service 模板服务
type Service struct {
	templates  *repository.TemplateRepository
	categories *repository.TemplateCategoryRepository
	validate   *validator.Validate
}

func NewService(templates *repository.TemplateRepository, categories *repository.TemplateCategoryRepository) *Service {
	return &Service{
		templates:  templates,
		categories: categories,
		validate:   validator.New(),
	}
}

// ---- 分类 ----

func (s *Service) ListCategories(ctx context.Context, page model.Pagination, keyword string) (int64, []model.TemplateCategory, error) {
	page.Normalize()
	total, categories, err := s.categories.List(page.Page, page.PageSize, keyword)
	if err != nil {
		return 0, nil, apperr.Internal(err, "查询分类失败")
	}
	return total, categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*model.TemplateCategory, error) {
	category, err := s.categories.FindByID(id)
	if err != nil {
		return nil, notFound(err, "分类不存在")
	}
	return category, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.TemplateCategory, error) {
	if err := s.checkCategory(&in, 0); err != nil {
		return nil, err
	}
	category := &model.TemplateCategory{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(category); err != nil {
		return nil, apperr.Internal(err, "创建分类失败")
	}
	logger.Infof("[Template] Category created: %s (id=%d)", category.Name, category.ID)
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*model.TemplateCategory, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(&in, id); err != nil {
		return nil, err
	}
	category.Name = in.Name
	category.Description = in.Description
	if err := s.categories.Update(category); err != nil {
		return nil, apperr.Internal(err, "更新分类失败")
	}
	return category, nil
}

// DeleteCategory 删除分类，其下模板变为未分类
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	err := s.categories.Transaction(func(categories *repository.TemplateCategoryRepository, templates *repository.TemplateRepository) error {
		if err := templates.DetachCategory(id); err != nil {
			return err
		}
		return categories.Delete(id)
	})
	if err != nil {
		return apperr.Internal(err, "删除分类失败")
	}
	logger.Infof("[Template] Category deleted: id=%d", id)
	return nil
}

func (s *Service) checkCategory(in *CategoryInput, excludeID uint) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	exists, err := s.categories.ExistsByName(in.Name, excludeID)
	if err != nil {
		return apperr.Internal(err, "查询分类失败")
	}
	if exists {
		return apperr.BadRequest("分类名称已存在: %s", in.Name)
	}
	return nil
}

// ---- 模板 ----

func (s *Service) ListTemplates(ctx context.Context, q TemplateQuery) (int64, []model.Template, error) {
	if q.Status != "" && q.Status != model.TemplateStatusActive && q.Status != model.TemplateStatusInactive {
		return 0, nil, apperr.BadRequest("不支持的模板状态: %s", q.Status)
	}
	page := model.Pagination{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	total, templates, err := s.templates.List(repository.TemplateFilter{
		CategoryID: q.CategoryID,
		Status:     q.Status,
		Keyword:    q.Keyword,
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
	if err != nil {
		return 0, nil, apperr.Internal(err, "查询模板失败")
	}
	return total, templates, nil
}

func (s *Service) GetTemplate(ctx context.Context, id uint) (*model.Template, error) {
	tpl, err := s.templates.FindByID(id)
	if err != nil {
		return nil, notFound(err, "模板不存在")
	}
	return tpl, nil
}

func (s *Service) CreateTemplate(ctx context.Context, actor model.Identity, in TemplateInput) (*model.Template, error) {
	if err := s.checkTemplate(&in); err != nil {
		return nil, err
	}
	tpl := &model.Template{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Schema:      datatypes.JSON(in.Schema),
		Status:      in.Status,
		Version:     1,
		CreatedBy:   actor.EmployeeID,
	}
	if err := s.templates.Create(tpl); err != nil {
		return nil, apperr.Internal(err, "创建模板失败")
	}
	logger.Infof("[Template] Template created: %s (id=%d, by=%d)", tpl.Name, tpl.ID, actor.EmployeeID)
	return s.GetTemplate(ctx, tpl.ID)
}

// UpdateTemplate 更新模板，表单结构变化时版本号加一
func (s *Service) UpdateTemplate(ctx context.Context, id uint, in TemplateInput) (*model.Template, error) {
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTemplate(&in); err != nil {
		return nil, err
	}

	changed, err := schemaChanged(tpl.Schema, in.Schema)
	if err != nil {
		return nil, apperr.Internal(err, "模板数据异常")
	}
	if changed {
		tpl.Version++
	}
	tpl.CategoryID = in.CategoryID
	tpl.Name = in.Name
	tpl.Description = in.Description
	tpl.Schema = datatypes.JSON(in.Schema)
	tpl.Status = in.Status

	if err := s.templates.Update(tpl); err != nil {
		return nil, apperr.Internal(err, "更新模板失败")
	}
	return s.GetTemplate(ctx, id)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uint) error {
	if _, err := s.GetTemplate(ctx, id); err != nil {
		return err
	}
	if err := s.templates.Delete(id); err != nil {
		return apperr.Internal(err, "删除模板失败")
	}
	logger.Infof("[Template] Template deleted: id=%d", id)
	return nil
}

// ValidateForm 按模板校验表单数据
func (s *Service) ValidateForm(ctx context.Context, templateID uint, data map[string]interface{}) error {
	tpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if tpl.Status == model.TemplateStatusInactive {
		return apperr.BadRequest("模板已停用: %s", tpl.Name)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(tpl.Schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return apperr.BadRequest("模板 %s 的表单结构无效", tpl.Name).Wrap(err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return apperr.BadRequest("表单数据不符合模板: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (s *Service) checkTemplate(in *TemplateInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = model.TemplateStatusActive
	}
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if err := CompileSchema(in.Schema); err != nil {
		return err
	}
	if in.CategoryID != nil {
		if _, err := s.categories.FindByID(*in.CategoryID); err != nil {
			return notFound(err, "分类不存在")
		}
	}
	return nil
}

// CompileSchema 校验模板是合法的 JSON Schema 对象
func CompileSchema(schema []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(schema, &obj); err != nil {
		return apperr.BadRequest("模板结构必须是 JSON 对象")
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(obj)); err != nil {
		return apperr.BadRequest("模板结构不是合法的 JSON Schema: %v", err)
	}
	return nil
}

func schemaChanged(old, updated []byte) (bool, error) {
	var a, b interface{}
	if err := json.Unmarshal(old, &a); err != nil {
		return true, nil
	}
	if err := json.Unmarshal(updated, &b); err != nil {
		return false, fmt.Errorf("decode schema: %w", err)
	}
	return !reflect.DeepEqual(a, b), nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return apperr.Internal(err, "数据库操作失败")
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.BadRequest("参数 %s 校验失败: %s", verrs[0].Field(), verrs[0].Tag())
	}
	return apperr.BadRequest("参数错误: %v", err)
}
