package database

import (
	"fmt"

	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.DatabaseConfig) error {
	cfg.SetDefaults()

	// 初始化数据库连接（内部已经 Ping 验证）
	if err := InitDatabase(cfg); err != nil {
		return err
	}

	if err := AutoMigrateAll(DB); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	logger.Infof("Database initialized successfully")
	return nil
}

// Ping 检查连接是否可用
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
