package app

import (
	"fmt"
	"log"
	"os"

	casbinpkg "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/casbin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	pkgredis "github.com/kimjiwon0450/Back-HRHub-sub000/pkg/redis"
)

// DefaultConfigPath 未指定时读取的配置文件
const DefaultConfigPath = "config/config.yaml"

// ResolveConfigPath 依次使用参数、HRHUB_CONFIG 环境变量和默认路径
func ResolveConfigPath(cfgPath string) string {
	if cfgPath != "" {
		return cfgPath
	}
	if v := os.Getenv("HRHUB_CONFIG"); v != "" {
		return v
	}
	return DefaultConfigPath
}

// Bootstrap 初始化基础设施（logger, database, redis, casbin）
func Bootstrap(cfgPath string) (*config.Config, error) {
	cfg, err := config.Load(ResolveConfigPath(cfgPath))
	if err != nil {
		return nil, err
	}

	if err := logger.Init(&cfg.Logging); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return nil, err
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Redis 可选，连接失败时降级为单机模式
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("Redis initialization failed: %v", err)
		logger.Info("   → Remind cooldowns fall back to the database column")
		logger.Info("   → Publish sweeps run without the distributed lock")
	} else if cfg.Redis.Enabled {
		logger.Infof("Redis initialized successfully - distributed features enabled")
	}

	// 在 Redis 之后初始化，以便配置 Watcher
	redisAddr := ""
	if pkgredis.IsEnabled() {
		redisAddr = pkgredis.Addr(&cfg.Redis)
	}
	if err := casbinpkg.Init(database.DB, redisAddr); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize casbin: %w", err)
	}

	return cfg, nil
}

// Shutdown 释放 Bootstrap 打开的连接
func Shutdown() {
	if err := database.Close(); err != nil {
		logger.Warnf("Database close error: %v", err)
	}
	if err := pkgredis.Close(); err != nil {
		logger.Warnf("Redis close error: %v", err)
	}
	logger.Sync()
}
