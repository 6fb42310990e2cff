package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Workflow Metrics

	// WorkflowTransitionsTotal 文档状态变更次数
	WorkflowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_workflow_transitions_total",
			Help: "Total number of document workflow transitions",
		},
		[]string{"action", "result"},
	)

	// WorkflowConflictsTotal 乐观锁冲突次数
	WorkflowConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_workflow_conflicts_total",
			Help: "Total number of concurrent modification conflicts",
		},
	)

	// Publisher Metrics

	// PublisherSweepsTotal 预约扫描次数
	PublisherSweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_publisher_sweeps_total",
			Help: "Total number of scheduled publish sweeps",
		},
		[]string{"result"}, // ok / skipped / error / lock_error
	)

	// PublisherPublishedTotal 预约提交成功的文档数
	PublisherPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_publisher_published_total",
			Help: "Total number of scheduled documents published",
		},
	)

	// PublisherFailuresTotal 预约提交失败的文档数
	PublisherFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_publisher_failures_total",
			Help: "Total number of scheduled documents that failed to publish",
		},
	)

	// PublisherSweepDuration 单次扫描时长
	PublisherSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "approval_publisher_sweep_duration_seconds",
			Help:    "Scheduled publish sweep duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// Access Metrics

	// PresignRequestsTotal 预签名请求次数
	PresignRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_presign_requests_total",
			Help: "Total number of presigned URL requests",
		},
		[]string{"disposition", "result"},
	)

	// EmployeeLookupsTotal 人事服务查询次数
	EmployeeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_employee_lookups_total",
			Help: "Total number of employee lookups",
		},
		[]string{"source", "result"}, // source: cache / remote
	)

	// EventsPublishedTotal 事件发布次数
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_events_published_total",
			Help: "Total number of workflow events published",
		},
		[]string{"type", "result"},
	)
)
