package approval

import (
	"context"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/events"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"gorm.io/datatypes"
)

// Submit 提交草稿，进入第一位审批人
func (s *Service) Submit(ctx context.Context, actor model.Identity, id uint) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionSubmit, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "提交文档"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "提交", model.DocumentStatusDraft); err != nil {
			return nil, err
		}
		return s.start(repo, doc, actor.EmployeeID, model.HistoryActionSubmit, events.DocumentSubmitted, nil)
	})
}

// start 进入审批：状态 IN_PROGRESS，当前审批人为序号1
func (s *Service) start(repo *repository.DocumentRepository, doc *model.Document, actorID uint, action model.HistoryAction, eventType events.Type, extra map[string]interface{}) ([]events.Event, error) {
	approver, err := firstApprover(doc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	fields := map[string]interface{}{
		"status":              model.DocumentStatusInProgress,
		"submitted_at":        now,
		"current_approver_id": *approver,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := repo.UpdateVersioned(doc, fields); err != nil {
		return nil, err
	}
	if err := repo.AddHistory(doc.ID, actorID, action, ""); err != nil {
		return nil, err
	}
	return []events.Event{s.event(eventType, doc, actorID, *approver)}, nil
}

// Schedule 预约在指定时间提交
func (s *Service) Schedule(ctx context.Context, actor model.Identity, id uint, at time.Time) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionSchedule, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "预约提交"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "预约提交", model.DocumentStatusDraft); err != nil {
			return nil, err
		}
		if _, err := firstApprover(doc); err != nil {
			return nil, err
		}
		if !at.After(s.now()) {
			return nil, apperr.BadRequest("预约时间必须晚于当前时间")
		}
		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"status":       model.DocumentStatusScheduled,
			"scheduled_at": at.UTC(),
			"published":    false,
		}); err != nil {
			return nil, err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionSchedule, at.UTC().Format("2006-01-02 15:04")); err != nil {
			return nil, err
		}
		return []events.Event{s.event(events.DocumentScheduled, doc, actor.EmployeeID, 0)}, nil
	})
}

// CancelSchedule 取消预约，回到草稿
func (s *Service) CancelSchedule(ctx context.Context, actor model.Identity, id uint) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionCancelSchedule, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "取消预约"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "取消预约", model.DocumentStatusScheduled); err != nil {
			return nil, err
		}
		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"status":       model.DocumentStatusDraft,
			"scheduled_at": nil,
			"published":    false,
		}); err != nil {
			return nil, err
		}
		return nil, repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionCancelSchedule, "")
	})
}

// PublishScheduled 由调度任务调用，提交到期的预约文档
func (s *Service) PublishScheduled(ctx context.Context, id uint) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionPublish, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if doc.Status != model.DocumentStatusScheduled || doc.Published {
			return nil, apperr.Conflict("文档 %d 不是待发布的预约文档", doc.ID)
		}
		if doc.ScheduledAt == nil || doc.ScheduledAt.After(s.now()) {
			return nil, apperr.BadRequest("文档 %d 尚未到预约时间", doc.ID)
		}
		return s.start(repo, doc, SystemActor, model.HistoryActionPublish, events.DocumentPublished, map[string]interface{}{
			"published": true,
		})
	})
}

// Approve 当前审批人批准；没有剩余审批人时文档通过
func (s *Service) Approve(ctx context.Context, actor model.Identity, id uint, comment string) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionApprove, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		line, err := s.currentLine(doc, actor)
		if err != nil {
			return nil, err
		}
		now := s.now()
		if err := repo.DecideLine(line.ID, model.ApprovalLineStatusApproved, comment, now); err != nil {
			return nil, err
		}
		line.Status = model.ApprovalLineStatusApproved

		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionApprove, comment); err != nil {
			return nil, err
		}

		if next := doc.CurrentLine(); next != nil {
			if err := repo.UpdateVersioned(doc, map[string]interface{}{
				"current_approver_id": next.ApproverID,
			}); err != nil {
				return nil, err
			}
			return []events.Event{s.event(events.DocumentAdvanced, doc, actor.EmployeeID, next.ApproverID)}, nil
		}

		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"status":              model.DocumentStatusApproved,
			"approved_at":         now,
			"current_approver_id": nil,
		}); err != nil {
			return nil, err
		}
		return []events.Event{s.event(events.DocumentApproved, doc, actor.EmployeeID, doc.WriterID)}, nil
	})
}

// Reject 当前审批人驳回，流程立即终止
func (s *Service) Reject(ctx context.Context, actor model.Identity, id uint, comment string) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionReject, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		line, err := s.currentLine(doc, actor)
		if err != nil {
			return nil, err
		}
		now := s.now()
		if err := repo.DecideLine(line.ID, model.ApprovalLineStatusRejected, comment, now); err != nil {
			return nil, err
		}
		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"status":              model.DocumentStatusRejected,
			"returned_at":         now,
			"current_approver_id": nil,
		}); err != nil {
			return nil, err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionReject, comment); err != nil {
			return nil, err
		}
		return []events.Event{s.event(events.DocumentRejected, doc, actor.EmployeeID, doc.WriterID)}, nil
	})
}

// currentLine 校验调用方是当前审批人
func (s *Service) currentLine(doc *model.Document, actor model.Identity) (*model.ApprovalLine, error) {
	if err := requireStatus(doc, "审批", model.DocumentStatusInProgress); err != nil {
		return nil, err
	}
	line := doc.CurrentLine()
	if line == nil {
		logger.Errorf("[Approval] Document %d is in progress without pending lines", doc.ID)
		return nil, apperr.Internal(nil, "审批线数据异常")
	}
	if line.ApproverID != actor.EmployeeID || doc.CurrentApproverID == nil || *doc.CurrentApproverID != actor.EmployeeID {
		return nil, apperr.Forbidden("当前不是您的审批节点")
	}
	return line, nil
}

// Recall 起草人撤回审批中的文档
func (s *Service) Recall(ctx context.Context, actor model.Identity, id uint) (*model.Document, error) {
	return s.transition(ctx, id, model.HistoryActionRecall, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "撤回文档"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "撤回", model.DocumentStatusInProgress); err != nil {
			return nil, err
		}
		var target uint
		if doc.CurrentApproverID != nil {
			target = *doc.CurrentApproverID
		}
		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"status":              model.DocumentStatusRecalled,
			"recalled_at":         s.now(),
			"current_approver_id": nil,
		}); err != nil {
			return nil, err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionRecall, ""); err != nil {
			return nil, err
		}
		return []events.Event{s.event(events.DocumentRecalled, doc, actor.EmployeeID, target)}, nil
	})
}

// Resubmit 驳回或撤回后重新提交；in 非空时先替换内容，否则沿用原审批线
// 所有审批线恢复为 PENDING，催办计数清零
func (s *Service) Resubmit(ctx context.Context, actor model.Identity, id uint, in *DocumentInput) (*model.Document, error) {
	var detail datatypes.JSON
	if in != nil {
		var err error
		if detail, err = s.checkInput(ctx, actor.EmployeeID, in); err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, id, model.HistoryActionResubmit, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "重新提交"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "重新提交", model.DocumentStatusRejected, model.DocumentStatusRecalled); err != nil {
			return nil, err
		}

		if in != nil {
			if err := s.applyInput(repo, doc, *in, detail); err != nil {
				return nil, err
			}
		} else if err := repo.ResetLines(doc.ID); err != nil {
			return nil, err
		}

		return s.start(repo, doc, actor.EmployeeID, model.HistoryActionResubmit, events.DocumentSubmitted, map[string]interface{}{
			"approved_at":      nil,
			"returned_at":      nil,
			"recalled_at":      nil,
			"reminder_count":   0,
			"last_reminded_at": nil,
		})
	})
}

// Remind 起草人催办当前审批人，两次催办之间有冷却时间
func (s *Service) Remind(ctx context.Context, actor model.Identity, id uint) (*model.Document, error) {
	cooldown := time.Duration(s.cfg.RemindCooldown) * time.Minute
	acquired := false

	doc, err := s.transition(ctx, id, model.HistoryActionRemind, func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error) {
		if err := requireWriter(doc, actor, "催办"); err != nil {
			return nil, err
		}
		if err := requireStatus(doc, "催办", model.DocumentStatusInProgress); err != nil {
			return nil, err
		}
		if doc.CurrentApproverID == nil {
			return nil, apperr.Conflict("文档没有当前审批人")
		}

		now := s.now()
		if s.cooldown != nil {
			ok, err := s.cooldown.Acquire(ctx, remindKey(doc.ID), cooldown)
			if err != nil {
				logger.Warnf("[Approval] Remind cooldown unavailable for document %d, using database: %v", doc.ID, err)
			} else if !ok {
				return nil, apperr.TooManyRequests("催办过于频繁，请稍后再试")
			} else {
				acquired = true
			}
		}
		if !acquired && doc.LastRemindedAt != nil && now.Sub(*doc.LastRemindedAt) < cooldown {
			return nil, apperr.TooManyRequests("催办过于频繁，请稍后再试")
		}

		if err := repo.UpdateVersioned(doc, map[string]interface{}{
			"reminder_count":   doc.ReminderCount + 1,
			"last_reminded_at": now,
		}); err != nil {
			return nil, err
		}
		if err := repo.AddHistory(doc.ID, actor.EmployeeID, model.HistoryActionRemind, ""); err != nil {
			return nil, err
		}
		return []events.Event{s.event(events.DocumentReminded, doc, actor.EmployeeID, *doc.CurrentApproverID)}, nil
	})
	if err != nil && acquired {
		// 催办没有生效，释放冷却
		s.cooldown.Release(ctx, remindKey(id))
	}
	return doc, err
}
