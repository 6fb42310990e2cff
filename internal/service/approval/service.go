// Package approval 实现审批文档的状态流转
//
// 状态：DRAFT → (SCHEDULED →) IN_PROGRESS → APPROVED / REJECTED，
// IN_PROGRESS 可由起草人撤回为 RECALLED，REJECTED / RECALLED 可修改后重新提交。
// 每次变更在单个事务内完成，并以文档版本号做条件更新。
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/events"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/metrics"
	"gorm.io/gorm"
)

// SystemActor 调度任务执行操作时记录的操作人
const SystemActor uint = 0

// FormValidator 按模板校验表单数据
type FormValidator interface {
	ValidateForm(ctx context.Context, templateID uint, data map[string]interface{}) error
}

// Service 审批流程服务
type Service struct {
	repo     *repository.DocumentRepository
	forms    FormValidator
	events   events.Publisher
	cooldown Cooldown
	cfg      config.WorkflowConfig
	validate *validator.Validate
	now      func() time.Time
}

// NewService 创建服务，rdb 为 nil 时催办冷却退化为数据库判断
func NewService(repo *repository.DocumentRepository, forms FormValidator, publisher events.Publisher, rdb *redis.Client, cfg config.WorkflowConfig) *Service {
	var cooldown Cooldown
	if rdb != nil {
		cooldown = NewRedisCooldown(rdb)
	}
	cfg.SetDefaults()
	return &Service{
		repo:     repo,
		forms:    forms,
		events:   publisher,
		cooldown: cooldown,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

// SetClock 替换时钟
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// step 事务内的状态变更，返回提交后需要发布的事件
type step func(repo *repository.DocumentRepository, doc *model.Document) ([]events.Event, error)

// transition 加载文档、执行变更并记录指标，事务提交后发布事件
func (s *Service) transition(ctx context.Context, id uint, action model.HistoryAction, fn step) (*model.Document, error) {
	var pending []events.Event

	err := s.repo.Transaction(func(repo *repository.DocumentRepository) error {
		doc, err := repo.FindDetail(id)
		if err != nil {
			return err
		}
		pending, err = fn(repo, doc)
		return err
	})
	if err != nil {
		err = mapError(err)
		metrics.WorkflowTransitionsTotal.WithLabelValues(string(action), resultLabel(err)).Inc()
		return nil, err
	}
	metrics.WorkflowTransitionsTotal.WithLabelValues(string(action), "ok").Inc()

	s.publish(ctx, pending)

	doc, err := s.repo.FindDetail(id)
	if err != nil {
		return nil, mapError(err)
	}
	return doc, nil
}

func (s *Service) publish(ctx context.Context, pending []events.Event) {
	if s.events == nil {
		return
	}
	for _, event := range pending {
		s.events.Publish(ctx, event)
	}
}

func (s *Service) event(t events.Type, doc *model.Document, actorID, targetID uint) events.Event {
	return events.Event{
		Type:           t,
		DocumentID:     doc.ID,
		DocumentNumber: doc.DocumentNumber,
		Title:          doc.Title,
		ActorID:        actorID,
		TargetID:       targetID,
		OccurredAt:     s.now(),
	}
}

// mapError 将仓库错误转换为业务错误
func mapError(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("文档不存在")
	case errors.Is(err, repository.ErrVersionConflict):
		metrics.WorkflowConflictsTotal.Inc()
		return apperr.Conflict("文档已被其他人修改，请刷新后重试").Wrap(err)
	default:
		logger.Errorf("[Approval] Unexpected storage error: %v", err)
		return apperr.Internal(err, "数据库操作失败")
	}
}

func resultLabel(err error) string {
	switch apperr.StatusOf(err) {
	case 400:
		return "bad_request"
	case 403:
		return "forbidden"
	case 404:
		return "not_found"
	case 409:
		return "conflict"
	case 429:
		return "throttled"
	default:
		return "error"
	}
}

// newDocumentNumber 文档编号：DOC-年月日时分秒+8位随机串
func newDocumentNumber(now time.Time) string {
	return fmt.Sprintf("DOC-%s%s", now.Format("20060102150405"), strings.ToUpper(uuid.New().String()[:8]))
}

func requireWriter(doc *model.Document, actor model.Identity, what string) error {
	if !doc.IsWriter(actor.EmployeeID) {
		return apperr.Forbidden("只有起草人可以%s", what)
	}
	return nil
}

func requireStatus(doc *model.Document, what string, allowed ...model.DocumentStatus) error {
	for _, status := range allowed {
		if doc.Status == status {
			return nil
		}
	}
	return apperr.Conflict("文档当前状态为 %s，不能%s", doc.Status, what)
}

func firstApprover(doc *model.Document) (*uint, error) {
	if len(doc.Lines) == 0 {
		return nil, apperr.BadRequest("至少需要一名审批人")
	}
	id := doc.Lines[0].ApproverID
	return &id, nil
}
