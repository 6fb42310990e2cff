// Package testutil 测试辅助：内存数据库和身份构造
package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 创建独立的内存 SQLite 数据库并完成迁移
// 只保留一个连接，事务内必须使用 tx
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrateAll(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
