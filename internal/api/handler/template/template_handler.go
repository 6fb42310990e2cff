package template

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/middleware"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/template"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
)

// TemplateHandler 表单模板
type TemplateHandler struct {
	templates *template.Service
}

// NewTemplateHandler 创建表单模板处理器
func NewTemplateHandler(templates *template.Service) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// ListTemplates 获取模板列表
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var q template.TemplateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		model.HandleError(c, apperr.BadRequest("查询参数错误"))
		return
	}
	total, templates, err := h.templates.ListTemplates(c.Request.Context(), q)
	if err != nil {
		model.HandleError(c, err)
		return
	}
	page := model.Pagination{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()
	c.JSON(http.StatusOK, model.Success(model.NewPaginatedResponse(templates, total, page.Page, page.PageSize)))
}

// GetTemplate 获取模板详情
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	tpl, err := h.templates.GetTemplate(c.Request.Context(), id)
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(tpl))
}

// CreateTemplate 创建模板
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var in template.TemplateInput
	if !bind(c, &in) {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	tpl, err := h.templates.CreateTemplate(c.Request.Context(), identity, in)
	if err != nil {
		model.HandleError(c, err, "创建模板失败")
		return
	}
	c.JSON(http.StatusCreated, model.Success(tpl))
}

// UpdateTemplate 更新模板
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in template.TemplateInput
	if !bind(c, &in) {
		return
	}
	tpl, err := h.templates.UpdateTemplate(c.Request.Context(), id, in)
	if err != nil {
		model.HandleError(c, err, "更新模板失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(tpl))
}

// DeleteTemplate 删除模板
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.templates.DeleteTemplate(c.Request.Context(), id); err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}

// ValidateForm 按模板校验表单数据，前端提交前调用
func (h *TemplateHandler) ValidateForm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var data map[string]interface{}
	if !bind(c, &data) {
		return
	}
	if err := h.templates.ValidateForm(c.Request.Context(), id, data); err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(gin.H{"valid": true}))
}

func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		model.HandleError(c, apperr.BadRequest("请求参数错误: %v", err))
		return false
	}
	return true
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		model.HandleError(c, apperr.BadRequest("无效的ID: %s", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}
