package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	_ "github.com/lib/pq" // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库（支持 MySQL 和 PostgreSQL）
func InitDatabase(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres", "postgresql":
		if err := createPostgresDatabase(cfg); err != nil {
			return fmt.Errorf("failed to create PostgreSQL database: %w", err)
		}
		dialector = postgres.Open(cfg.DSN())
	case "mysql", "":
		if err := createMySQLDatabase(cfg); err != nil {
			return fmt.Errorf("failed to create MySQL database: %w", err)
		}
		dialector = mysql.Open(cfg.DSN())
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", cfg.Driver)
	}

	logger.Infof("Connecting to %s database...", cfg.Driver)

	db, err := Open(dialector)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	maxOpenConns := cfg.MaxOpenConns
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	logger.Infof("Database connection pool configured: MaxOpenConns=%d, MaxIdleConns=%d, ConnMaxLifetime=%ds",
		maxOpenConns, maxIdleConns, cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db
	logger.Infof("Database connection verified successfully")
	return nil
}

// Open 使用统一的 gorm 配置打开连接，测试中传入 sqlite 方言
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// createMySQLDatabase 创建 MySQL 数据库（如果不存在）
// 使用 database/sql 而不是 GORM，避免影响主连接
func createMySQLDatabase(cfg *config.DatabaseConfig) error {
	dsnWithoutDB := fmt.Sprintf("%s:%s@tcp(%s:%d)/?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port)

	db, err := sql.Open("mysql", dsnWithoutDB)
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL server: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Second)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping MySQL server: %w", err)
	}

	createDBSQL := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.DBName)
	if _, err := db.Exec(createDBSQL); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	logger.Infof("Database '%s' created or already exists", cfg.DBName)
	return nil
}

// createPostgresDatabase 创建 PostgreSQL 数据库（如果不存在）
func createPostgresDatabase(cfg *config.DatabaseConfig) error {
	// PostgreSQL 需要连接到默认的 postgres 数据库来创建新数据库
	dsnPostgres := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	db, err := sql.Open("postgres", dsnPostgres)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL server: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Second)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL server: %w", err)
	}

	var count int64
	if err := db.QueryRow("SELECT COUNT(*) FROM pg_database WHERE datname = $1", cfg.DBName).Scan(&count); err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if count == 0 {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DBName)); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		logger.Infof("Database '%s' created successfully", cfg.DBName)
	} else {
		logger.Infof("Database '%s' already exists", cfg.DBName)
	}

	return nil
}

// Models 返回需要迁移的全部模型，顺序满足外键依赖
func Models() []interface{} {
	return []interface{}{
		&model.TemplateCategory{},
		&model.Template{},
		&model.Document{},
		&model.ApprovalLine{},
		&model.Attachment{},
		&model.DocumentReference{},
		&model.DocumentHistory{},
	}
}

// AutoMigrateAll 自动迁移所有表并写入默认数据
func AutoMigrateAll(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Checking database tables...")
	for _, table := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(table); err == nil && !db.Migrator().HasTable(table) {
			logger.Infof("Table %s does not exist, will be created", stmt.Schema.Table)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := createDefaultData(db); err != nil {
		// 表已经创建成功，默认数据可以后续手动创建
		logger.Warnf("Failed to create default data: %v", err)
	}
	return nil
}

// createDefaultData 创建默认模板分类
func createDefaultData(db *gorm.DB) error {
	defaults := []model.TemplateCategory{
		{Name: "通用", Description: "通用审批表单"},
		{Name: "人事", Description: "请假、出差、加班等人事类表单"},
		{Name: "财务", Description: "报销、付款等财务类表单"},
	}

	for _, category := range defaults {
		var count int64
		if err := db.Model(&model.TemplateCategory{}).Where("name = ?", category.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		c := category
		if err := db.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to create category %s: %w", category.Name, err)
		}
		logger.Infof("Created default template category: %s", category.Name)
	}
	return nil
}
