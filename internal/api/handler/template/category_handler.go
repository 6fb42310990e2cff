package template

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/template"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
)

// CategoryHandler 表单模板分类
type CategoryHandler struct {
	templates *template.Service
}

// NewCategoryHandler 创建表单模板分类处理器
func NewCategoryHandler(templates *template.Service) *CategoryHandler {
	return &CategoryHandler{templates: templates}
}

// ListCategories 获取分类列表
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		model.HandleError(c, apperr.BadRequest("查询参数错误"))
		return
	}
	page.Normalize()
	total, categories, err := h.templates.ListCategories(c.Request.Context(), page, c.Query("keyword"))
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(model.NewPaginatedResponse(categories, total, page.Page, page.PageSize)))
}

// GetCategory 获取分类
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	category, err := h.templates.GetCategory(c.Request.Context(), id)
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(category))
}

// CreateCategory 创建分类
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var in template.CategoryInput
	if !bind(c, &in) {
		return
	}
	category, err := h.templates.CreateCategory(c.Request.Context(), in)
	if err != nil {
		model.HandleError(c, err, "创建分类失败")
		return
	}
	c.JSON(http.StatusCreated, model.Success(category))
}

// UpdateCategory 更新分类
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in template.CategoryInput
	if !bind(c, &in) {
		return
	}
	category, err := h.templates.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		model.HandleError(c, err, "更新分类失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(category))
}

// DeleteCategory 删除分类，其下模板变为未分类
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.templates.DeleteCategory(c.Request.Context(), id); err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}
