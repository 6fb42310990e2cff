package document

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/access"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/approval"
)

// FileHandler 附件上传登记与预览/下载跳转
type FileHandler struct {
	access    *access.Service
	approvals *approval.Service
}

// NewFileHandler 创建附件处理器
func NewFileHandler(accessService *access.Service, approvals *approval.Service) *FileHandler {
	return &FileHandler{access: accessService, approvals: approvals}
}

// Preview 跳转到预签名预览地址
func (h *FileHandler) Preview(c *gin.Context) {
	h.redirect(c, access.DispositionPreview)
}

// Download 跳转到预签名下载地址
func (h *FileHandler) Download(c *gin.Context) {
	h.redirect(c, access.DispositionDownload)
}

func (h *FileHandler) redirect(c *gin.Context, disposition access.Disposition) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	signed, err := h.access.Presign(c.Request.Context(), access.PresignRequest{
		DocumentID:  id,
		FileURL:     c.Query("url"),
		CallerEmail: caller(c).Email,
		Disposition: disposition,
	})
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, signed)
}

// UploadURL 生成附件上传地址
func (h *FileHandler) UploadURL(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		FileName string `json:"file_name" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	ticket, err := h.access.UploadURL(c.Request.Context(), caller(c), id, req.FileName)
	if err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(ticket))
}

// RegisterAttachment 登记上传完成的附件
func (h *FileHandler) RegisterAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in approval.AttachmentInput
	if !bind(c, &in) {
		return
	}
	if err := h.access.CheckStorageURL(in.StorageURL); err != nil {
		model.HandleError(c, err)
		return
	}
	att, err := h.approvals.AddAttachment(c.Request.Context(), caller(c), id, in)
	if err != nil {
		model.HandleError(c, err, "登记附件失败")
		return
	}
	c.JSON(http.StatusCreated, model.Success(att))
}

// DeleteAttachment 删除附件
func (h *FileHandler) DeleteAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}
	if err := h.approvals.RemoveAttachment(c.Request.Context(), caller(c), id, attachmentID); err != nil {
		model.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Success(nil))
}
