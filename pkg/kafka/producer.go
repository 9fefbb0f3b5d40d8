// 文件: pkg/kafka/producer.go
// Kafka 生产者 (估值事件流)
//
// 特点:
// - 异步发送，错误在后台 goroutine 统计并打日志
// - 消息体统一 JSON，带 content-type header
// - 优雅关闭: Close 会等待内部缓冲发送完成

package kafka

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("kafka producer is closed")

// Message 可发送到 Kafka 的消息
type Message interface {
	Topic() string          // 目标 topic
	Key() string            // 分区 key (相同 key 保证顺序，估值事件按标的分区)
	Value() ([]byte, error) // 序列化后的消息体
}

// =============================================================================
// 配置
// =============================================================================

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	RequiredAcks   sarama.RequiredAcks
	Compression    sarama.CompressionCodec
	FlushFrequency time.Duration
	FlushMessages  int
	MaxRetries     int
}

// DefaultProducerConfig 默认配置
// 估值事件量不大但要求不丢，用 WaitForLocal + 少量批处理
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:        brokers,
		ClientID:       "optpricing",
		RequiredAcks:   sarama.WaitForLocal,
		Compression:    sarama.CompressionSnappy,
		FlushFrequency: 50 * time.Millisecond,
		FlushMessages:  64,
		MaxRetries:     3,
	}
}

func (c ProducerConfig) saramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	if c.ClientID != "" {
		sc.ClientID = c.ClientID
	}
	sc.Producer.RequiredAcks = c.RequiredAcks
	sc.Producer.Compression = c.Compression
	sc.Producer.Flush.Frequency = c.FlushFrequency
	sc.Producer.Flush.Messages = c.FlushMessages
	sc.Producer.Retry.Max = c.MaxRetries
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	return sc
}

// =============================================================================
// Producer
// =============================================================================

// Producer 异步 Kafka 生产者
type Producer struct {
	producer sarama.AsyncProducer

	sentCount  atomic.Int64
	errorCount atomic.Int64

	closed  atomic.Bool
	done    chan struct{}  // Close 时关闭，唤醒阻塞在 Input() 上的 Send
	mu      sync.RWMutex   // 保护 closed 检查与 sending 计数
	sending sync.WaitGroup // 在途 Send，底层 producer 关闭前必须归零
	wg      sync.WaitGroup
}

// NewProducer 创建生产者
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	ap, err := sarama.NewAsyncProducer(cfg.Brokers, cfg.saramaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFrom(ap), nil
}

// NewProducerFrom 包装已有的 AsyncProducer (测试里传 sarama/mocks)
func NewProducerFrom(ap sarama.AsyncProducer) *Producer {
	p := &Producer{producer: ap, done: make(chan struct{})}
	p.wg.Add(1)
	go p.handleErrors()
	return p
}

// Send 异步发送一条消息
func (p *Producer) Send(msg Message) error {
	data, err := msg.Value()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	p.mu.RLock()
	if p.closed.Load() {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	p.sending.Add(1)
	p.mu.RUnlock()
	defer p.sending.Done()

	// 不持锁等待: broker 不可用、缓冲写满时 Input() 会阻塞，Close 通过 done 唤醒
	select {
	case p.producer.Input() <- &sarama.ProducerMessage{
		Topic: msg.Topic(),
		Key:   sarama.StringEncoder(msg.Key()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}:
		p.sentCount.Add(1)
		return nil
	case <-p.done:
		return ErrProducerClosed
	}
}

func (p *Producer) handleErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		p.errorCount.Add(1)
		log.Printf("[Kafka] send error: topic=%s, err=%v", err.Msg.Topic, err.Err)
	}
}

// ProducerStats 统计信息
type ProducerStats struct {
	SentCount  int64
	ErrorCount int64
}

func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		SentCount:  p.sentCount.Load(),
		ErrorCount: p.errorCount.Load(),
	}
}

// Close 关闭生产者，重复调用安全
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return nil
	}
	close(p.done)
	p.mu.Unlock()

	p.sending.Wait()
	err := p.producer.Close()
	p.wg.Wait()
	return err
}
