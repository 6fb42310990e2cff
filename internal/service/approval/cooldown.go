package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cooldown 跨节点的操作冷却
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// RedisCooldown 通过 SETNX 实现冷却，键过期即冷却结束
type RedisCooldown struct {
	client *redis.Client
}

func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (c *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

func (c *RedisCooldown) Release(ctx context.Context, key string) {
	c.client.Del(ctx, key)
}

func remindKey(documentID uint) string {
	return fmt.Sprintf("hrhub:approval:remind:%d", documentID)
}
