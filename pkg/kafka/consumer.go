// 文件: pkg/kafka/consumer.go
// Kafka 消费者组 (批量定价请求入口)

package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/IBM/sarama"
)

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topics        []string
	OffsetInitial int64 // sarama.OffsetNewest / sarama.OffsetOldest
}

// DefaultConsumerConfig 默认配置
// 定价请求是可重放的纯计算，从最早的 offset 开始不会有副作用
func DefaultConsumerConfig(brokers []string, groupID string, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:       brokers,
		GroupID:       groupID,
		Topics:        topics,
		OffsetInitial: sarama.OffsetOldest,
	}
}

// MessageHandler 处理一条消息
// 返回错误只记日志，不阻塞后续消息 (定价失败是输入问题，重试没有意义)
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer 消费者组
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer 创建消费者
func NewConsumer(cfg ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer requires at least one topic")
	}
	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = cfg.OffsetInitial
	sc.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Consumer{group: group, topics: cfg.Topics, handler: handler}, nil
}

// Start 在后台循环加入消费者组，直到 ctx 取消或 Stop
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		h := &groupHandler{handler: c.handler}
		for {
			if err := c.group.Consume(ctx, c.topics, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				log.Printf("[Kafka] consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Stop 停止消费并关闭连接
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.group.Close()
}

// groupHandler 实现 sarama.ConsumerGroupHandler
type groupHandler struct {
	handler MessageHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler(session.Context(), msg.Key, msg.Value); err != nil {
				log.Printf("[Kafka] handle error: topic=%s, partition=%d, offset=%d, err=%v",
					msg.Topic, msg.Partition, msg.Offset, err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
