// 文件: pkg/nats/subscriber.go
// NATS 订阅者，支持 request/reply

package nats

import (
	"errors"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// Handler 处理一条消息
// 如果消息带 Reply 主题，返回的 reply 会被回复给请求方；
// 返回 error 时只记日志 (需要把错误告诉请求方的话，由 handler 自己编码进 reply)
type Handler func(subject string, data []byte) (reply []byte, err error)

// Subscriber NATS 订阅者
type Subscriber struct {
	conn    *nats.Conn
	closed  <-chan struct{}
	subs    []*nats.Subscription
	handler Handler
}

// NewSubscriber 创建订阅者
func NewSubscriber(url, name string, handler Handler) (*Subscriber, error) {
	conn, closed, err := connect(url, name)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, closed: closed, handler: handler}, nil
}

// Subscribe 普通订阅 (每个实例都收到)
func (s *Subscriber) Subscribe(subjects ...string) error {
	for _, subject := range subjects {
		sub, err := s.conn.Subscribe(subject, s.dispatch)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// SubscribeQueue 队列订阅 (同一队列内负载均衡)
func (s *Subscriber) SubscribeQueue(subject, queue string) error {
	sub, err := s.conn.QueueSubscribe(subject, queue, s.dispatch)
	if err != nil {
		return fmt.Errorf("queue subscribe %s/%s: %w", subject, queue, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) dispatch(msg *nats.Msg) {
	reply, err := s.handler(msg.Subject, msg.Data)
	if err != nil {
		log.Printf("[NATS] handle error: subject=%s, err=%v", msg.Subject, err)
	}
	if msg.Reply == "" || reply == nil {
		return
	}
	if err := msg.Respond(reply); err != nil {
		log.Printf("[NATS] respond error: subject=%s, err=%v", msg.Subject, err)
	}
}

// Flush 等待服务端确认订阅已生效
func (s *Subscriber) Flush() error {
	return s.conn.Flush()
}

// Close 排空: 停止接收新消息，等已收到的消息处理完 (含回复) 后断开
// 返回时 handler 不会再被调用
func (s *Subscriber) Close() error {
	s.subs = nil
	if err := s.conn.Drain(); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return nil
		}
		return err
	}
	<-s.closed
	return nil
}
