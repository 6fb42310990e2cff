package document

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/middleware"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/approval"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
)

// DocumentHandler 审批文档接口
type DocumentHandler struct {
	approvals *approval.Service
}

// NewDocumentHandler 创建审批文档处理器
func NewDocumentHandler(approvals *approval.Service) *DocumentHandler {
	return &DocumentHandler{approvals: approvals}
}

// ListDocuments 按视角查询文档列表
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var q approval.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		model.HandleError(c, apperr.BadRequest("查询参数错误"))
		return
	}
	total, docs, err := h.approvals.List(c.Request.Context(), caller(c), q)
	if err != nil {
		model.HandleError(c, err, "查询文档列表失败")
		return
	}
	page := model.Pagination{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()
	c.JSON(http.StatusOK, model.Success(model.NewPaginatedResponse(docs, total, page.Page, page.PageSize)))
}

// CreateDocument 创建文档
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var cmd approval.CreateCommand
	if !bind(c, &cmd) {
		return
	}
	doc, err := h.approvals.Create(c.Request.Context(), caller(c), cmd)
	if err != nil {
		model.HandleError(c, err, "创建文档失败")
		return
	}
	c.JSON(http.StatusCreated, model.Success(doc))
}

// GetDocument 文档详情
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.approvals.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(view))
}

// UpdateDocument 修改文档内容
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in approval.DocumentInput
	if !bind(c, &in) {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return h.approvals.UpdateDraft(c.Request.Context(), caller(c), id, in)
	})
}

// DeleteDocument 删除文档
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.approvals.Delete(c.Request.Context(), caller(c), id); err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}

// Submit 提交
func (h *DocumentHandler) Submit(c *gin.Context) {
	h.action(c, h.approvals.Submit)
}

// Schedule 预约提交
func (h *DocumentHandler) Schedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ScheduledAt *time.Time `json:"scheduled_at" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return h.approvals.Schedule(c.Request.Context(), caller(c), id, *req.ScheduledAt)
	})
}

// CancelSchedule 取消预约
func (h *DocumentHandler) CancelSchedule(c *gin.Context) {
	h.action(c, h.approvals.CancelSchedule)
}

// Approve 批准
func (h *DocumentHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvals.Approve)
}

// Reject 驳回
func (h *DocumentHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvals.Reject)
}

// Recall 撤回
func (h *DocumentHandler) Recall(c *gin.Context) {
	h.action(c, h.approvals.Recall)
}

// Resubmit 重新提交，请求体为空时沿用原内容
func (h *DocumentHandler) Resubmit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in *approval.DocumentInput
	if c.Request.ContentLength > 0 {
		in = &approval.DocumentInput{}
		if !bind(c, in) {
			return
		}
	}
	h.respond(c, func() (*model.Document, error) {
		return h.approvals.Resubmit(c.Request.Context(), caller(c), id, in)
	})
}

// Remind 催办
func (h *DocumentHandler) Remind(c *gin.Context) {
	h.action(c, h.approvals.Remind)
}

// AddReference 添加参阅人
func (h *DocumentHandler) AddReference(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		EmployeeID uint `json:"employee_id" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return h.approvals.AddReference(c.Request.Context(), caller(c), id, req.EmployeeID)
	})
}

// RemoveReference 删除参阅人
func (h *DocumentHandler) RemoveReference(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	employeeID, ok := paramID(c, "employeeId")
	if !ok {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return h.approvals.RemoveReference(c.Request.Context(), caller(c), id, employeeID)
	})
}

type transitionFunc func(ctx context.Context, actor model.Identity, id uint) (*model.Document, error)

func (h *DocumentHandler) action(c *gin.Context, fn transitionFunc) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return fn(c.Request.Context(), caller(c), id)
	})
}

type decisionFunc func(ctx context.Context, actor model.Identity, id uint, comment string) (*model.Document, error)

func (h *DocumentHandler) decide(c *gin.Context, fn decisionFunc) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment" binding:"max=1000"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	h.respond(c, func() (*model.Document, error) {
		return fn(c.Request.Context(), caller(c), id, req.Comment)
	})
}

func (h *DocumentHandler) respond(c *gin.Context, fn func() (*model.Document, error)) {
	doc, err := fn()
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(doc))
}

func caller(c *gin.Context) model.Identity {
	identity, _ := middleware.CurrentIdentity(c)
	return identity
}

func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		model.HandleError(c, apperr.BadRequest("请求参数错误: %v", err))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		model.HandleError(c, apperr.BadRequest("无效的ID: %s", c.Param(name)))
		return 0, false
	}
	return uint(id), true
}
