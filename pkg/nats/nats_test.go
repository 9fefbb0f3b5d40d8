package nats

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNatsURL = "nats://127.0.0.1:4222"

type echoReq struct {
	Strike float64 `json:"strike"`
}

type echoResp struct {
	Strike  float64 `json:"strike"`
	Subject string  `json:"subject"`
}

func setupPublisher(t *testing.T) *Publisher {
	pub, err := NewPublisher(testNatsURL, "optpricing-test")
	if err != nil {
		t.Skipf("skipping test; nats not available: %v", err)
	}
	t.Cleanup(pub.Close)
	return pub
}

func TestRequestReply(t *testing.T) {
	pub := setupPublisher(t)

	sub, err := NewSubscriber(testNatsURL, "optpricing-test-responder", func(subject string, data []byte) ([]byte, error) {
		var req echoReq
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return json.Marshal(echoResp{Strike: req.Strike, Subject: subject})
	})
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.SubscribeQueue("test.pricing.echo", "test"))
	require.NoError(t, sub.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var resp echoResp
	require.NoError(t, pub.Request(ctx, "test.pricing.echo", echoReq{Strike: 40}, &resp))
	assert.Equal(t, 40.0, resp.Strike)
	assert.Equal(t, "test.pricing.echo", resp.Subject)
}

func TestPublishSubscribe(t *testing.T) {
	pub := setupPublisher(t)

	got := make(chan string, 1)
	sub, err := NewSubscriber(testNatsURL, "", func(subject string, data []byte) ([]byte, error) {
		got <- string(data)
		return nil, errors.New("handler errors are only logged")
	})
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Subscribe("test.valuation.AAPL"))
	require.NoError(t, sub.Flush())

	require.NoError(t, pub.Publish("test.valuation.AAPL", map[string]float64{"price": 4.76}))
	require.NoError(t, pub.Flush())

	select {
	case data := <-got:
		assert.JSONEq(t, `{"price":4.76}`, data)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestSubscriber_CloseWaitsForHandlers(t *testing.T) {
	pub := setupPublisher(t)

	started := make(chan struct{})
	var finished atomic.Bool
	sub, err := NewSubscriber(testNatsURL, "", func(subject string, data []byte) ([]byte, error) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, sub.Subscribe("test.valuation.SLOW"))
	require.NoError(t, sub.Flush())

	require.NoError(t, pub.Publish("test.valuation.SLOW", map[string]float64{"price": 1}))
	require.NoError(t, pub.Flush())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	require.NoError(t, sub.Close())
	assert.True(t, finished.Load(), "handler still running after Close")
	assert.True(t, sub.conn.IsClosed())

	// 重复关闭不报错
	assert.NoError(t, sub.Close())
}
