package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/api/router"
	casbinpkg "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/casbin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// StartServer 启动 HTTP 服务器，收到 SIGINT/SIGTERM 后优雅退出
func StartServer(application *App) error {
	cfg := application.Config
	gin.SetMode(cfg.Server.Mode)

	r := router.Setup(
		application.Handlers,
		application.Services.Tokens,
		casbinpkg.GetEnforcer(),
		database.Ping,
	)

	if cfg.Scheduler.Disabled {
		logger.Infof("Publish scheduler disabled on this node")
	} else if err := application.Scheduler.Start(); err != nil {
		Shutdown()
		return fmt.Errorf("failed to start publish scheduler: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.APIPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupBanner(cfg)

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case <-sigChan:
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	logger.Infof("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// 1. HTTP server
	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("  HTTP server shutdown error: %v", err)
	} else {
		logger.Infof("  ✓ HTTP server stopped")
	}

	// 2. 等待正在执行的扫描结束
	if !cfg.Scheduler.Disabled {
		logger.Infof("  → Stopping publish scheduler...")
		application.Scheduler.Stop(shutdownCtx)
		logger.Infof("  ✓ Publish scheduler stopped")
	}

	// 3. 事件发布者
	logger.Infof("  → Closing event publisher...")
	if err := application.Services.Events.Close(); err != nil {
		logger.Warnf("  Event publisher close error: %v", err)
	} else {
		logger.Infof("  ✓ Event publisher closed")
	}

	// 4. Database / Redis
	logger.Infof("  → Closing database and redis...")
	Shutdown()

	logger.Infof("Shutdown complete")
	return runErr
}

// printStartupBanner 打印启动横幅
func printStartupBanner(cfg *config.Config) {
	logger.Infof("")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("HRHub Approval Service")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("")
	logger.Infof("   • API        - :%d/api", cfg.Server.APIPort)
	logger.Infof("   • Metrics    - :%d/metrics", cfg.Server.APIPort)
	logger.Infof("   • Database   - %s", cfg.Database.Driver)
	logger.Infof("   • Events     - %s (%s)", cfg.Events.Backend, cfg.Events.Topic)
	if cfg.Scheduler.Disabled {
		logger.Infof("   • Scheduler  - disabled")
	} else {
		logger.Infof("   • Scheduler  - %s", cfg.Scheduler.PublishCron)
	}
	logger.Infof("")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("")
}
