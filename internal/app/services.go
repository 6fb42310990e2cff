package app

import (
	"fmt"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/employee"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/events"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/scheduler"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/service"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/objectstore"
	pkgredis "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/redis"
)

// Services 服务集合
type Services struct {
	Tokens    *service.TokenService
	Templates *service.TemplateService
	Approvals *service.ApprovalService
	Access    *service.AccessService
	Events    *events.WatermillPublisher
}

// InitializeWorkflow 初始化审批流程及其依赖，调度命令只需要这一部分
func InitializeWorkflow(cfg *config.Config, repos *Repositories) (*service.TemplateService, *service.ApprovalService, *events.WatermillPublisher, error) {
	publisher, err := events.NewPublisher(&cfg.Events)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	logger.Infof("Event publisher initialized (backend: %s, topic: %s)", cfg.Events.Backend, cfg.Events.Topic)

	templates := service.NewTemplateService(repos.Template, repos.TemplateCategory)
	approvals := service.NewApprovalService(repos.Document, templates, publisher, pkgredis.GetClient(), cfg.Workflow)
	return templates, approvals, publisher, nil
}

// InitializeServices 初始化所有服务
func InitializeServices(cfg *config.Config, repos *Repositories) (*Services, error) {
	templates, approvals, publisher, err := InitializeWorkflow(cfg, repos)
	if err != nil {
		return nil, err
	}

	store, err := objectstore.New(&cfg.Storage)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	logger.Infof("Object storage initialized (endpoint: %s, bucket: %s)", cfg.Storage.Endpoint, cfg.Storage.Bucket)

	employees := employee.NewClient(&cfg.Employee, pkgredis.GetClient())

	return &Services{
		Tokens:    service.NewTokenService(cfg.Security),
		Templates: templates,
		Approvals: approvals,
		Access:    service.NewAccessService(repos.Document, employees, store, cfg.Storage),
		Events:    publisher,
	}, nil
}

// InitializeScheduler 创建预约提交扫描任务
func InitializeScheduler(cfg *config.Config, repos *Repositories, approvals *service.ApprovalService) *scheduler.PublishScheduler {
	return scheduler.NewPublishScheduler(repos.Document, approvals, pkgredis.GetClient(), cfg.Scheduler)
}
