package casbin

import (
	"fmt"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	rediswatcher "github.com/casbin/redis-watcher/v2"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"gorm.io/gorm"
)

const (
	// RoleAdmin 模板管理员
	RoleAdmin = "admin"
	// AnyRole 所有已登录员工
	AnyRole = "*"

	watcherChannel = "/hrhub/casbin"
)

var (
	enforcer   *casbin.SyncedCachedEnforcer
	enforcerMu sync.RWMutex
)

// Subject 将令牌中的角色转换为策略主体
func Subject(role string) string {
	return "role:" + role
}

// DefaultPolicies 默认策略：所有人可读模板和分类、校验表单，管理员可以维护
func DefaultPolicies() [][]string {
	admin := Subject(RoleAdmin)
	return [][]string{
		{AnyRole, "/api/templates", "GET"},
		{AnyRole, "/api/templates/:id", "GET"},
		{AnyRole, "/api/templates/:id/validate", "POST"},
		{AnyRole, "/api/template-categories", "GET"},
		{AnyRole, "/api/template-categories/:id", "GET"},
		{admin, "/api/templates", "(GET)|(POST)"},
		{admin, "/api/templates/:id", "(GET)|(PUT)|(DELETE)"},
		{admin, "/api/template-categories", "(GET)|(POST)"},
		{admin, "/api/template-categories/:id", "(GET)|(PUT)|(DELETE)"},
	}
}

// NewModel 权限模型，p.sub 为 * 时对所有主体生效
func NewModel() casbinmodel.Model {
	m := casbinmodel.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", `(p.sub == "*" || g(r.sub, p.sub)) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)`)
	return m
}

// New 创建执行器，策略存储在数据库 casbin_rule 表中并写入缺失的默认策略
// redisAddr 非空时通过 Redis Watcher 在多个节点间同步策略变更
func New(db *gorm.DB, redisAddr string) (*casbin.SyncedCachedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("初始化Casbin适配器失败: %w", err)
	}

	e, err := casbin.NewSyncedCachedEnforcer(NewModel(), adapter)
	if err != nil {
		return nil, fmt.Errorf("创建Casbin执行器失败: %w", err)
	}
	e.SetExpireTime(time.Hour)

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("加载Casbin策略失败: %w", err)
	}
	if _, err := e.AddPoliciesEx(DefaultPolicies()); err != nil {
		return nil, fmt.Errorf("写入默认策略失败: %w", err)
	}

	if redisAddr != "" {
		setupWatcher(e, redisAddr)
	} else {
		logger.Info("Redis未启用，权限变更后需要手动调用ReloadPolicy")
	}

	return e, nil
}

func setupWatcher(e *casbin.SyncedCachedEnforcer, redisAddr string) {
	watcher, err := rediswatcher.NewWatcher(redisAddr, rediswatcher.WatcherOptions{
		Channel:    watcherChannel,
		IgnoreSelf: true,
	})
	if err != nil {
		logger.Warnf("创建Redis Watcher失败: %v，将使用单机模式", err)
		return
	}
	if err := e.SetWatcher(watcher); err != nil {
		logger.Warnf("设置Watcher失败: %v，将使用单机模式", err)
		return
	}
	_ = watcher.SetUpdateCallback(func(msg string) {
		logger.Infof("收到策略更新通知: %s，重新加载策略", msg)
		if err := e.LoadPolicy(); err != nil {
			logger.Errorf("重新加载策略失败: %v", err)
			return
		}
		_ = e.InvalidateCache()
	})
	logger.Infof("Redis Watcher已配置（地址: %s）", redisAddr)
}

// Init 初始化全局执行器
func Init(db *gorm.DB, redisAddr string) error {
	e, err := New(db, redisAddr)
	if err != nil {
		return err
	}
	enforcerMu.Lock()
	enforcer = e
	enforcerMu.Unlock()
	logger.Info("Casbin权限管理器初始化成功")
	return nil
}

// GetEnforcer 获取全局执行器，未初始化时返回 nil
func GetEnforcer() *casbin.SyncedCachedEnforcer {
	enforcerMu.RLock()
	defer enforcerMu.RUnlock()
	return enforcer
}

// ReloadPolicy 重新加载策略并清除缓存
func ReloadPolicy() error {
	e := GetEnforcer()
	if e == nil {
		return nil
	}
	if err := e.LoadPolicy(); err != nil {
		return err
	}
	return e.InvalidateCache()
}
