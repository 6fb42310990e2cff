package app

import (
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/router"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/scheduler"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

// App 应用程序上下文
type App struct {
	Config    *config.Config
	Repos     *Repositories
	Services  *Services
	Handlers  router.Handlers
	Scheduler *scheduler.PublishScheduler
}

// Initialize 初始化应用程序
func Initialize(cfgPath string) (*App, error) {
	// 1. Bootstrap (logger, database, redis, casbin)
	cfg, err := Bootstrap(cfgPath)
	if err != nil {
		return nil, err
	}

	// 2. Initialize repositories
	repos := InitializeRepositories(database.DB)
	logger.Infof("Repositories initialized")

	// 3. Initialize services
	services, err := InitializeServices(cfg, repos)
	if err != nil {
		Shutdown()
		return nil, err
	}
	logger.Infof("Services initialized")

	// 4. Initialize handlers
	handlers := InitializeHandlers(services)
	logger.Infof("Handlers initialized")

	// 5. Publish scheduler
	publishScheduler := InitializeScheduler(cfg, repos, services.Approvals)

	return &App{
		Config:    cfg,
		Repos:     repos,
		Services:  services,
		Handlers:  handlers,
		Scheduler: publishScheduler,
	}, nil
}
