package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/distributed"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// SweepLockKey 多节点部署时只有持锁节点执行扫描
const SweepLockKey = "hrhub:approval:publish-sweep"

// DueFinder 查询到期的预约文档
type DueFinder interface {
	FindDueScheduled(now time.Time, limit int) ([]uint, error)
}

// DocumentPublisher 提交单个预约文档，由审批服务实现
type DocumentPublisher interface {
	PublishScheduled(ctx context.Context, id uint) (*model.Document, error)
}

// SweepResult 单次扫描结果
type SweepResult struct {
	Found     int
	Published int
	Failed    int
	Skipped   bool // 其他节点持有锁
}

// PublishScheduler 预约提交调度器，按 cron 周期扫描到期文档
type PublishScheduler struct {
	finder    DueFinder
	publisher DocumentPublisher
	newLock   func() distributed.Locker
	cfg       config.SchedulerConfig
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	now       func() time.Time
}

// NewPublishScheduler 创建调度器，rdb 非 nil 时扫描前获取 Redis 锁
func NewPublishScheduler(finder DueFinder, publisher DocumentPublisher, rdb *redis.Client, cfg config.SchedulerConfig) *PublishScheduler {
	cfg.SetDefaults()
	s := &PublishScheduler{
		finder:    finder,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
	if rdb != nil {
		s.newLock = func() distributed.Locker {
			return distributed.NewRedisLock(rdb, SweepLockKey, time.Minute)
		}
	}
	return s
}

// SetLocker 替换扫描锁的构造函数，nil 表示不加锁
func (s *PublishScheduler) SetLocker(newLock func() distributed.Locker) {
	s.newLock = newLock
}

// SetClock 替换时钟
func (s *PublishScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start 启动周期扫描
func (s *PublishScheduler) Start() error {
	cronLogger := cronLogAdapter{}
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(s.cfg.PublishCron, func() {
		if _, err := s.Sweep(s.ctx); err != nil {
			logger.Errorf("[PublishScheduler] Sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid publish cron '%s': %w", s.cfg.PublishCron, err)
	}

	s.cron.Start()
	logger.Infof("[PublishScheduler] Started, cron=%s batch=%d", s.cfg.PublishCron, s.cfg.BatchSize)
	return nil
}

// Stop 停止调度并等待正在执行的扫描结束
func (s *PublishScheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("[PublishScheduler] Stop timed out, cancelling running sweep")
	}
	s.cancel()
	logger.Info("[PublishScheduler] Stopped")
}

// Sweep 执行一次扫描；单个文档失败只记录日志，不影响其他文档
func (s *PublishScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() {
		metrics.PublisherSweepDuration.Observe(time.Since(start).Seconds())
	}()

	var result SweepResult

	if s.newLock != nil {
		lock := s.newLock()
		ok, err := lock.TryLock(ctx)
		switch {
		case err != nil:
			// 锁不可用时退化为无锁扫描，重复提交由版本号拦截
			metrics.PublisherSweepsTotal.WithLabelValues("lock_error").Inc()
			logger.Warnf("[PublishScheduler] Lock %s unavailable, sweeping without it: %v", SweepLockKey, err)
		case !ok:
			result.Skipped = true
			metrics.PublisherSweepsTotal.WithLabelValues("skipped").Inc()
			logger.Debugf("[PublishScheduler] Another node holds %s, skipping", SweepLockKey)
			return result, nil
		default:
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warnf("[PublishScheduler] %v", err)
				}
			}()
		}
	}

	ids, err := s.finder.FindDueScheduled(s.now().UTC(), s.cfg.BatchSize)
	if err != nil {
		metrics.PublisherSweepsTotal.WithLabelValues("error").Inc()
		return result, fmt.Errorf("failed to load scheduled documents: %w", err)
	}
	result.Found = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.publisher.PublishScheduled(ctx, id); err != nil {
			result.Failed++
			metrics.PublisherFailuresTotal.Inc()
			logger.Errorf("[PublishScheduler] Failed to publish document %d: %v", id, err)
			continue
		}
		result.Published++
		metrics.PublisherPublishedTotal.Inc()
	}

	metrics.PublisherSweepsTotal.WithLabelValues("ok").Inc()
	if result.Found > 0 {
		logger.Infof("[PublishScheduler] Sweep done: found=%d published=%d failed=%d",
			result.Found, result.Published, result.Failed)
	}
	return result, nil
}

// cronLogAdapter 将 cron 日志写入 zap
type cronLogAdapter struct{}

func (cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugf("[cron] %s %v", msg, keysAndValues)
}

func (cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("[cron] %s: %v %v", msg, err, keysAndValues)
}
