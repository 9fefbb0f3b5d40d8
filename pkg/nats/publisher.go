// 文件: pkg/nats/publisher.go
// NATS 发布者 / 请求客户端
// 估值事件广播 + 同步请求定价 (request/reply)

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// Publisher NATS 发布者
type Publisher struct {
	conn   *nats.Conn
	closed <-chan struct{}
}

// NewPublisher 连接 NATS
// name 会出现在服务端的连接列表里，便于排查
func NewPublisher(url, name string) (*Publisher, error) {
	conn, closed, err := connect(url, name)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, closed: closed}, nil
}

// Publish 以 JSON 发布消息
func (p *Publisher) Publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return p.conn.Publish(subject, data)
}

// Request 发送 JSON 请求并把应答解码到 out
// 超时由 ctx 控制
func (p *Publisher) Request(ctx context.Context, subject string, req any, out any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	msg, err := p.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("decode reply from %s: %w", subject, err)
	}
	return nil
}

// Flush 等待已发布消息被服务端接收
func (p *Publisher) Flush() error {
	return p.conn.Flush()
}

// Close 排空后关闭连接，返回时已发布的消息都已发出
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return
	}
	<-p.closed
}

// connect 返回的 closed 在连接彻底关闭后 (包括 Drain 完成) 被关闭
func connect(url, name string) (*nats.Conn, <-chan struct{}, error) {
	closed := make(chan struct{})
	var once sync.Once
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ClosedHandler(func(*nats.Conn) { once.Do(func() { close(closed) }) }),
	}
	if name != "" {
		opts = append(opts, nats.Name(name))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, closed, nil
}
