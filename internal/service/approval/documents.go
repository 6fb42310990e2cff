package approval

import (
	"context"
	"errors"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/events"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentView 文档详情及操作记录
type DocumentView struct {
	*model.Document
	History []model.DocumentHistory `json:"history"`
}

// ListQuery 列表查询参数
type ListQuery struct {
	Box      string `form:"box"`
	Status   string `form:"status"`
	Keyword  string `form:"keyword"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Create 创建文档
func (s *Service) Create(ctx context.Context, actor model.Identity, cmd CreateCommand) (*model.Document, error) {
	detail, err := s.checkInput(ctx, actor.EmployeeID, &cmd.DocumentInput)
	if err != nil {
		return nil, err
	}
	if cmd.Submit && cmd.ScheduledAt != nil {
		return nil, apperr.BadRequest("不能同时立即提交和预约提交")
	}

	now := s.now()
	doc := &model.Document{
		DocumentNumber: newDocumentNumber(now),
		TemplateID:     cmd.TemplateID,
		WriterID:       actor.EmployeeID,
		WriterEmail:    actor.Email,
		Title:          cmd.Title,
		Body:           cmd.Body,
		Status:         model.DocumentStatusDraft,
		Detail:         detail,
		Version:        1,
		Lines:          model.BuildApprovalLines(cmd.ApproverIDs),
		References:     references(cmd.ReferenceIDs),
	}

	var pending []events.Event
	switch {
	case cmd.Submit:
		approver, err := firstApprover(doc)
		if err != nil {
			return nil, err
		}
		doc.Status = model.DocumentStatusInProgress
		doc.SubmittedAt = &now
		doc.CurrentApproverID = approver
		pending = append(pending, s.event(events.DocumentSubmitted, doc, actor.EmployeeID, *approver))
	case cmd.ScheduledAt != nil:
		if _, err := firstApprover(doc); err != nil {
			return nil, err
		}
		if !cmd.ScheduledAt.After(now) {
			return nil, apperr.BadRequest("预约时间必须晚于当前时间")
		}
		at := cmd.ScheduledAt.UTC()
		doc.Status = model.DocumentStatusScheduled
		doc.ScheduledAt = &at
	}

	err = s.repo.Transaction(func(repo *repository.DocumentRepository) error {
		if err := repo.Create(doc); err != nil {
			return err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionCreate, ""); err != nil {
			return err
		}
		switch doc.Status {
		case model.DocumentStatusInProgress:
			return repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionSubmit, "")
		case model.DocumentStatusScheduled:
			return repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionSchedule, doc.ScheduledAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	// 事件中需要数据库生成的ID
	for i := range pending {
		pending[i].DocumentID = doc.ID
	}
	s.publish(ctx, pending)

	created, err := s.repo.FindDetail(doc.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// UpdateDraft 修改文档内容、审批人和参阅人，仅限可编辑状态
func (s *Service) UpdateDraft(ctx context.Context, actor model.Identity, id uint, in DocumentInput) (*model.Document, error) {
	detail, err := s.checkInput(ctx, actor.EmployeeID, &in)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, id, model.HistoryActionUpdate, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "修改文档"); err != nil {
			return nil, err
		}
		if !doc.Status.Editable() {
			return nil, apperr.Conflict("文档当前状态为 %s，不能修改", doc.Status)
		}
		if err := s.applyInput(repo, doc, in, detail); err != nil {
			return nil, err
		}
		return nil, repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionUpdate, "")
	})
}

// applyInput 写入内容并重建审批线和参阅人
func (s *Service) applyInput(repo *repository.DocumentRepository, doc *model.Document, in DocumentInput, detail datatypes.JSON) error {
	if err := repo.UpdateVersioned(doc, map[string]interface{}{
		"template_id": in.TemplateID,
		"title":       in.Title,
		"body":        in.Body,
		"detail":      detail,
	}); err != nil {
		return err
	}
	lines := model.BuildApprovalLines(in.ApproverIDs)
	if err := repo.ReplaceLines(doc.ID, lines); err != nil {
		return err
	}
	doc.Lines = lines
	return repo.ReplaceReferences(doc.ID, in.ReferenceIDs)
}

// Delete 删除草稿或已撤回的文档
func (s *Service) Delete(ctx context.Context, actor model.Identity, id uint) error {
	err := s.repo.Transaction(func(repo *repository.DocumentRepository) error {
		doc, err := repo.FindByID(id)
		if err != nil {
			return err
		}
		if err := requireWriter(doc, actor, "删除文档"); err != nil {
			return err
		}
		if err := requireStatus(doc, "删除", model.DocumentStatusDraft, model.DocumentStatusRecalled); err != nil {
			return err
		}
		return repo.Delete(id)
	})
	return mapError(err)
}

// Get 查看文档，仅限起草人、审批人和参阅人
func (s *Service) Get(ctx context.Context, actor model.Identity, id uint) (*DocumentView, error) {
	doc, err := s.repo.FindDetail(id)
	if err != nil {
		return nil, mapError(err)
	}
	if !doc.CanView(actor.EmployeeID) {
		return nil, apperr.Forbidden("无权查看该文档")
	}
	history, err := s.repo.ListHistory(id)
	if err != nil {
		return nil, mapError(err)
	}
	return &DocumentView{Document: doc, History: history}, nil
}

// List 按视角查询文档
func (s *Service) List(ctx context.Context, actor model.Identity, q ListQuery) (int64, []model.Document, error) {
	box := repository.DocumentBox(q.Box)
	switch box {
	case "":
		box = repository.BoxWritten
	case repository.BoxWritten, repository.BoxPending, repository.BoxInvolved, repository.BoxReferenced:
	default:
		return 0, nil, apperr.BadRequest("不支持的列表类型: %s", q.Box)
	}

	status := model.DocumentStatus(q.Status)
	if status != "" && !status.Valid() {
		return 0, nil, apperr.BadRequest("不支持的文档状态: %s", q.Status)
	}

	page := model.Pagination{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	total, docs, err := s.repo.List(repository.DocumentFilter{
		EmployeeID: actor.EmployeeID,
		Box:        box,
		Status:     status,
		Keyword:    q.Keyword,
		Page:       page.Page,
		PageSize:   page.PageSize,
	})
	if err != nil {
		return 0, nil, mapError(err)
	}
	return total, docs, nil
}

// AddReference 添加参阅人
func (s *Service) AddReference(ctx context.Context, actor model.Identity, id, employeeID uint) (*model.Document, error) {
	if employeeID == 0 {
		return nil, apperr.BadRequest("参阅人不能为空")
	}
	return s.transition(ctx, id, model.HistoryActionAddReference, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "添加参阅人"); err != nil {
			return nil, err
		}
		if employeeID == doc.WriterID {
			return nil, apperr.BadRequest("起草人不能作为参阅人")
		}
		if doc.IsReference(employeeID) {
			return nil, nil
		}
		if err := repo.AddReference(doc.ID, employeeID); err != nil {
			return nil, err
		}
		if err := s.syncReferences(repo, doc); err != nil {
			return nil, err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionAddReference, ""); err != nil {
			return nil, err
		}
		if !doc.Submitted() {
			return nil, nil
		}
		return []events.Event{s.event(events.ReferenceAdded, doc, actor.EmployeeID, employeeID)}, nil
	})
}

// RemoveReference 删除参阅人
func (s *Service) RemoveReference(ctx context.Context, actor model.Identity, id, employeeID uint) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionRemoveReference, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "删除参阅人"); err != nil {
			return nil, err
		}
		removed, err := repo.RemoveReference(doc.ID, employeeID)
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, apperr.NotFound("参阅人不存在")
		}
		if err := s.syncReferences(repo, doc); err != nil {
			return nil, err
		}
		return nil, repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionRemoveReference, "")
	})
}

// syncReferences 以参阅人表为准重写 detail.references，并提升版本号
func (s *Service) syncReferences(repo *repository.DocumentRepository, doc *model.Document) error {
	ids, err := repo.ReferenceIDs(doc.ID)
	if err != nil {
		return err
	}
	if err := doc.SetDetailReferences(ids); err != nil {
		return err
	}
	return repo.UpdateVersioned(doc, map[string]interface{}{"detail": doc.Detail})
}

// AddAttachment 登记已上传的附件
func (s *Service) AddAttachment(ctx context.Context, actor model.Identity, id uint, in AttachmentInput) (*model.Attachment, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	att := &model.Attachment{
		DocumentID:  id,
		FileName:    in.FileName,
		StorageURL:  in.StorageURL,
		ContentType: in.ContentType,
		Size:        in.Size,
		UploadedAt:  s.now(),
	}
	_, err := s.transition(ctx, id, model.HistoryActionAttach, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "上传附件"); err != nil {
			return nil, err
		}
		if !doc.Status.Editable() {
			return nil, apperr.Conflict("文档当前状态为 %s，不能修改附件", doc.Status)
		}
		if doc.HasFile(in.StorageURL) {
			return nil, apperr.BadRequest("附件已存在")
		}
		if err := repo.CreateAttachment(att); err != nil {
			return nil, err
		}
		if err := repo.UpdateVersioned(doc, nil); err != nil {
			return nil, err
		}
		return nil, repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionAttach, in.FileName)
	})
	if err != nil {
		return nil, err
	}
	return att, nil
}

// RemoveAttachment 删除附件记录，对象存储中的文件由生命周期策略清理
func (s *Service) RemoveAttachment(ctx context.Context, actor model.Identity, id, attachmentID uint) error {
	_, err := s.transition(ctx, id, model.HistoryActionDetach, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "删除附件"); err != nil {
			return nil, err
		}
		if !doc.Status.Editable() {
			return nil, apperr.Conflict("文档当前状态为 %s，不能修改附件", doc.Status)
		}
		att, err := repo.FindAttachment(doc.ID, attachmentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("附件不存在")
		}
		if err != nil {
			return nil, err
		}
		if err := repo.DeleteAttachment(att.ID); err != nil {
			return nil, err
		}
		if err := repo.UpdateVersioned(doc, nil); err != nil {
			return nil, err
		}
		return nil, repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionDetach, att.FileName)
	})
	return err
}
