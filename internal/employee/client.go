// Package employee 查询人事服务，把令牌中的邮箱解析为员工
package employee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/metrics"
)

// ErrNotFound 人事服务中不存在该员工
var ErrNotFound = errors.New("employee not found")

// Resolver 邮箱到员工的解析
type Resolver interface {
	ResolveByEmail(ctx context.Context, email string) (*model.Employee, error)
}

const cacheKeyPrefix = "hrhub:employee:email:"

// Client 人事服务 HTTP 客户端，Redis 可用时缓存查询结果
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	maxRetries uint64
}

// NewClient 创建客户端，cache 为 nil 时不缓存
func NewClient(cfg *config.EmployeeConfig, cache *redis.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		cache:      cache,
		cacheTTL:   time.Duration(cfg.CacheTTL) * time.Second,
		maxRetries: 2,
	}
}

// ResolveByEmail 查询员工；未知员工返回 ErrNotFound，其他错误表示人事服务不可用
func (c *Client) ResolveByEmail(ctx context.Context, email string) (*model.Employee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}

	if emp := c.fromCache(ctx, email); emp != nil {
		metrics.EmployeeLookupsTotal.WithLabelValues("cache", "hit").Inc()
		return emp, nil
	}

	var emp *model.Employee
	op := func() error {
		var err error
		emp, err = c.fetch(ctx, email)
		if errors.Is(err, ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.EmployeeLookupsTotal.WithLabelValues("remote", "not_found").Inc()
			return nil, ErrNotFound
		}
		metrics.EmployeeLookupsTotal.WithLabelValues("remote", "error").Inc()
		return nil, fmt.Errorf("employee lookup for %s failed: %w", email, err)
	}

	metrics.EmployeeLookupsTotal.WithLabelValues("remote", "ok").Inc()
	c.toCache(ctx, email, emp)
	return emp, nil
}

func (c *Client) fetch(ctx context.Context, email string) (*model.Employee, error) {
	endpoint := fmt.Sprintf("%s/api/employees/by-email?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("employee service returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("employee service returned %d", resp.StatusCode))
	}

	var emp model.Employee
	if err := json.NewDecoder(resp.Body).Decode(&emp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode employee response: %w", err))
	}
	if emp.ID == 0 {
		return nil, ErrNotFound
	}
	return &emp, nil
}

func (c *Client) fromCache(ctx context.Context, email string) *model.Employee {
	if c.cache == nil {
		return nil
	}
	data, err := c.cache.Get(ctx, cacheKeyPrefix+email).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("[Employee] Failed to read cache for %s: %v", email, err)
		}
		return nil
	}
	var emp model.Employee
	if err := json.Unmarshal(data, &emp); err != nil {
		return nil
	}
	return &emp
}

func (c *Client) toCache(ctx context.Context, email string, emp *model.Employee) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(emp)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKeyPrefix+email, data, c.cacheTTL).Err(); err != nil {
		logger.Warnf("[Employee] Failed to cache %s: %v", email, err)
	}
}
