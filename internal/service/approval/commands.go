package approval

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"gorm.io/datatypes"
)

// DocumentInput 文档内容，创建和修改共用
type DocumentInput struct {
	TemplateID   *uint           `json:"template_id"`
	Title        string          `json:"title" validate:"required,max=200"`
	Body         string          `json:"body"`
	Detail       json.RawMessage `json:"detail"`
	ApproverIDs  []uint          `json:"approver_ids" validate:"unique,dive,gt=0"`
	ReferenceIDs []uint          `json:"reference_ids" validate:"unique,dive,gt=0"`
}

// CreateCommand 创建文档；Submit 为 true 时直接提交，ScheduledAt 非空时预约提交
type CreateCommand struct {
	DocumentInput
	Submit      bool       `json:"submit"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// AttachmentInput 登记附件
type AttachmentInput struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	StorageURL  string `json:"storage_url" validate:"required,url"`
	ContentType string `json:"content_type" validate:"max=100"`
	Size        int64  `json:"size" validate:"gte=0"`
}

// checkInput 校验内容并返回规范化后的 detail
func (s *Service) checkInput(ctx context.Context, writerID uint, in *DocumentInput) (datatypes.JSON, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if len(in.ApproverIDs) > s.cfg.MaxApprovers {
		return nil, apperr.BadRequest("审批人不能超过 %d 名", s.cfg.MaxApprovers)
	}
	for _, id := range in.ApproverIDs {
		if id == writerID {
			return nil, apperr.BadRequest("起草人不能作为审批人")
		}
	}
	for _, id := range in.ReferenceIDs {
		if id == writerID {
			return nil, apperr.BadRequest("起草人不能作为参阅人")
		}
	}

	doc := &model.Document{}
	if len(in.Detail) > 0 && string(in.Detail) != "null" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(in.Detail, &obj); err != nil {
			return nil, apperr.BadRequest("detail 必须是 JSON 对象")
		}
		doc.Detail = datatypes.JSON(in.Detail)
	}
	if _, err := doc.ParseDetail(); err != nil {
		return nil, apperr.BadRequest("detail 中的 references 或 attachments 格式错误")
	}

	if in.TemplateID != nil && s.forms != nil {
		data, err := doc.FormData()
		if err != nil {
			return nil, apperr.BadRequest("detail 必须是 JSON 对象")
		}
		if err := s.forms.ValidateForm(ctx, *in.TemplateID, data); err != nil {
			return nil, err
		}
	}

	if err := doc.SetDetailReferences(in.ReferenceIDs); err != nil {
		return nil, apperr.Internal(err, "处理参阅人失败")
	}
	return doc.Detail, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.BadRequest("参数 %s 校验失败: %s", fe.Field(), fe.Tag())
	}
	return apperr.BadRequest("参数错误: %v", err)
}

func references(ids []uint) []model.DocumentReference {
	refs := make([]model.DocumentReference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, model.DocumentReference{EmployeeID: id})
	}
	return refs
}
