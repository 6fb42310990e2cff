// Package events 发布审批流程事件，供通知等下游服务订阅
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/metrics"
)

// Type 事件类型
type Type string

const (
	DocumentSubmitted Type = "document.submitted"
	DocumentScheduled Type = "document.scheduled"
	DocumentPublished Type = "document.published"
	DocumentAdvanced  Type = "document.advanced" // 当前审批人变更
	DocumentApproved  Type = "document.approved"
	DocumentRejected  Type = "document.rejected"
	DocumentRecalled  Type = "document.recalled"
	DocumentReminded  Type = "document.reminded"
	ReferenceAdded    Type = "document.reference_added"

	// TypeMetadataKey 消息元数据中的事件类型
	TypeMetadataKey = "event_type"
	// KeyMetadataKey 消息元数据中的分区键（文档ID）
	KeyMetadataKey = "partition_key"
)

// Event 审批事件
type Event struct {
	Type           Type      `json:"type"`
	DocumentID     uint      `json:"documentId"`
	DocumentNumber string    `json:"documentNumber"`
	Title          string    `json:"title"`
	ActorID        uint      `json:"actorId"`
	TargetID       uint      `json:"targetId,omitempty"` // 需要被通知的员工
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher 事件发布者；发布失败只记录日志，不影响业务流程
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// WatermillPublisher 基于 watermill 的发布者
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillPublisher(pub message.Publisher, topic string) *WatermillPublisher {
	return &WatermillPublisher{publisher: pub, topic: topic}
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[Events] Failed to encode %s event for document %d: %v", event.Type, event.DocumentID, err)
		return
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(TypeMetadataKey, string(event.Type))
	msg.Metadata.Set(KeyMetadataKey, fmt.Sprintf("%d", event.DocumentID))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		logger.Errorf("[Events] Failed to publish %s event for document %d: %v", event.Type, event.DocumentID, err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NewPublisher 按配置创建发布者：gochannel（单机/测试）或 kafka
func NewPublisher(cfg *config.EventsConfig) (*WatermillPublisher, error) {
	wmLogger := NewZapAdapter()

	switch cfg.Backend {
	case "kafka":
		saramaConfig := sarama.NewConfig()
		saramaConfig.Producer.Return.Successes = true
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll

		pub, err := kafka.NewPublisher(
			kafka.PublisherConfig{
				Brokers:               cfg.Brokers,
				Marshaler:             kafka.NewWithPartitioningMarshaler(partitionKey),
				OverwriteSaramaConfig: saramaConfig,
			},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		logger.Infof("[Events] Publishing to kafka topic %s (brokers: %v)", cfg.Topic, cfg.Brokers)
		return NewWatermillPublisher(pub, cfg.Topic), nil
	default:
		logger.Infof("[Events] Publishing to in-process channel topic %s", cfg.Topic)
		return NewWatermillPublisher(NewGoChannel(wmLogger), cfg.Topic), nil
	}
}

// NewGoChannel 进程内 pub/sub
func NewGoChannel(wmLogger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		wmLogger,
	)
}

// 同一文档的事件进入同一分区，保证顺序
func partitionKey(topic string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(KeyMetadataKey), nil
}
