// 文件: pkg/valuation/consumer.go
// 估值请求入口
//
// - NATS request/reply: 在线同步定价，队列订阅，多实例负载均衡
// - Kafka 消费者组:     离线批量定价，结果经 EventPublisher 广播

package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"max.com/optpricing/pkg/kafka"
	"max.com/optpricing/pkg/nats"
)

// =============================================================================
// NatsResponder
// =============================================================================

// NatsResponder 订阅 pricing.request，回复 Reply
type NatsResponder struct {
	service    *Service
	subscriber *nats.Subscriber
	timeout    time.Duration
}

// NewNatsResponder timeout 为单个请求的处理上限 (主要是查行情和落库)
func NewNatsResponder(service *Service, natsURL string, timeout time.Duration) (*NatsResponder, error) {
	r := &NatsResponder{service: service, timeout: timeout}

	subscriber, err := nats.NewSubscriber(natsURL, "pricer-responder", r.handle)
	if err != nil {
		return nil, err
	}
	r.subscriber = subscriber
	return r, nil
}

func (r *NatsResponder) Start() error {
	if err := r.subscriber.SubscribeQueue(SubjectPricingRequest, QueueGroup); err != nil {
		return err
	}
	return r.subscriber.Flush()
}

func (r *NatsResponder) Stop() error {
	return r.subscriber.Close()
}

// handle 估值错误编码进 Reply.Error 返回给请求方
func (r *NatsResponder) handle(subject string, data []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		reply, _ := json.Marshal(Reply{Error: fmt.Sprintf("%v: %v", ErrInvalidRequest, err)})
		return reply, fmt.Errorf("decode request on %s: %w", subject, err)
	}

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out := Reply{RequestID: req.RequestID}
	v, err := r.service.Value(ctx, &req)
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Valuation = v
	}

	reply, mErr := json.Marshal(out)
	if mErr != nil {
		return nil, mErr
	}
	return reply, err
}

// =============================================================================
// KafkaRequestConsumer
// =============================================================================

// KafkaRequestConsumer 消费 option_pricing_requests
// 消息体可以是单个 Request，也可以是 Request 数组 (走 ValueBatch)
type KafkaRequestConsumer struct {
	service  *Service
	consumer *kafka.Consumer
}

func NewKafkaRequestConsumer(service *Service, brokers []string, groupID string) (*KafkaRequestConsumer, error) {
	c := &KafkaRequestConsumer{service: service}

	consumer, err := kafka.NewConsumer(kafka.DefaultConsumerConfig(brokers, groupID, TopicPricingRequests), c.handle)
	if err != nil {
		return nil, err
	}
	c.consumer = consumer
	return c, nil
}

func (c *KafkaRequestConsumer) Start(ctx context.Context) {
	c.consumer.Start(ctx)
}

func (c *KafkaRequestConsumer) Stop() error {
	return c.consumer.Stop()
}

func (c *KafkaRequestConsumer) handle(ctx context.Context, key, value []byte) error {
	reqs, err := decodeRequests(value)
	if err != nil {
		return fmt.Errorf("decode pricing request (key=%s): %w", key, err)
	}

	var failed int
	for _, res := range c.service.ValueBatch(ctx, reqs) {
		if res.Err != nil {
			failed++
			log.Printf("[Valuation] request failed: id=%s, symbol=%s, err=%v",
				res.Request.RequestID, res.Request.Symbol, res.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pricing requests failed", failed, len(reqs))
	}
	return nil
}

func decodeRequests(data []byte) ([]*Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []*Request
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		reqs := raw[:0]
		for _, r := range raw {
			if r != nil {
				reqs = append(reqs, r)
			}
		}
		return reqs, nil
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return []*Request{&req}, nil
}
