package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

var (
	// Client 全局 Redis 客户端（nil表示Redis未启用或连接失败）
	Client *redis.Client
)

// Init 初始化 Redis 连接
// 未启用时直接返回；连接失败返回错误，调用方可以选择降级继续启动
func Init(cfg *config.RedisConfig) error {
	if !cfg.Enabled {
		logger.Info("[Redis] Redis is disabled in config, cooldowns and locks fall back to database mode")
		return nil
	}

	cfg.SetDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         Addr(cfg),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.ConnectTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeout)*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w (will use database mode)", Addr(cfg), err)
	}

	Client = client
	logger.Infof("[Redis] Connected to Redis at %s (DB: %d, PoolSize: %d)", Addr(cfg), cfg.DB, cfg.PoolSize)
	return nil
}

// Addr 返回 host:port
func Addr(cfg *config.RedisConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Close 关闭 Redis 连接
func Close() error {
	if Client != nil {
		err := Client.Close()
		Client = nil
		return err
	}
	return nil
}

// IsEnabled 检查 Redis 是否已启用且连接正常
func IsEnabled() bool {
	return Client != nil
}

// GetClient 获取Redis客户端（如果未启用则返回nil）
func GetClient() *redis.Client {
	return Client
}
