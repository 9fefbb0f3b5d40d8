// 文件: pkg/valuation/publisher.go
// 估值事件发布
//
// - Kafka: option_valuations，按标的分区，下游风控/报表消费
// - NATS:  valuation.{symbol}，推给在线订阅方

package valuation

import (
	"context"
	"errors"

	"max.com/optpricing/pkg/kafka"
	"max.com/optpricing/pkg/nats"
)

// EventPublisher 估值事件发布者
type EventPublisher interface {
	Publish(ctx context.Context, v *Valuation) error
}

// =============================================================================
// Kafka
// =============================================================================

// KafkaSender kafka.Producer 的发送能力
type KafkaSender interface {
	Send(msg kafka.Message) error
}

type KafkaEventPublisher struct {
	producer KafkaSender
}

func NewKafkaEventPublisher(producer KafkaSender) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 异步发送，这里只返回入队错误
func (p *KafkaEventPublisher) Publish(_ context.Context, v *Valuation) error {
	return p.producer.Send(v)
}

// =============================================================================
// NATS
// =============================================================================

type NatsEventPublisher struct {
	publisher *nats.Publisher
}

func NewNatsEventPublisher(publisher *nats.Publisher) *NatsEventPublisher {
	return &NatsEventPublisher{publisher: publisher}
}

func (p *NatsEventPublisher) Publish(_ context.Context, v *Valuation) error {
	return p.publisher.Publish(v.Subject(), v)
}

// =============================================================================
// 多路发布
// =============================================================================

// MultiPublisher 依次发布到所有下游，一路失败不影响其他路
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, v *Valuation) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
