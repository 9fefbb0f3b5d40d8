package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"max.com/optpricing/pkg/kafka"
)

// =============================================================================
// NATS request/reply
// =============================================================================

func TestNatsResponder_Handle(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	r := &NatsResponder{service: svc}

	data, err := json.Marshal(referenceRequest("CALL"))
	require.NoError(t, err)

	out, err := r.handle(SubjectPricingRequest, data)
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(out, &reply))
	assert.Empty(t, reply.Error)
	assert.Equal(t, "ref-CALL", reply.RequestID)
	require.NotNil(t, reply.Valuation)
	assert.InDelta(t, 4.759422392871535, reply.Valuation.Price.InexactFloat64(), 1e-12)
	assert.NotZero(t, reply.Valuation.ValuationID)
}

func TestNatsResponder_HandleErrors(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)
	r := &NatsResponder{service: svc}

	// 估值失败: 错误进 Reply.Error，仍然回复
	req := referenceRequest("PUT")
	req.Style = "AMERICAN"
	data, _ := json.Marshal(req)
	out, err := r.handle(SubjectPricingRequest, data)
	require.Error(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(out, &reply))
	assert.Nil(t, reply.Valuation)
	assert.Contains(t, reply.Error, "american pricing not implemented")

	// 请求体非法
	out, err = r.handle(SubjectPricingRequest, []byte("{not json"))
	require.Error(t, err)
	reply = Reply{}
	require.NoError(t, json.Unmarshal(out, &reply))
	assert.Contains(t, reply.Error, ErrInvalidRequest.Error())
}

// =============================================================================
// Kafka 批量请求
// =============================================================================

func TestDecodeRequests(t *testing.T) {
	reqs, err := decodeRequests([]byte(`{"symbol":"AAPL","type":"CALL","strike":100,"time_to_expiry":0.25}`))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "AAPL", reqs[0].Symbol)
	assert.Nil(t, reqs[0].Spot)

	reqs, err = decodeRequests([]byte(` [{"symbol":"A"}, null, {"symbol":"B","spot":10}]`))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "B", reqs[1].Symbol)
	require.NotNil(t, reqs[1].Spot)
	assert.Equal(t, 10.0, *reqs[1].Spot)

	_, err = decodeRequests([]byte("garbage"))
	assert.Error(t, err)
}

func TestKafkaRequestConsumer_Handle(t *testing.T) {
	repo := &memRepo{}
	pub := &recordingPublisher{}
	c := &KafkaRequestConsumer{service: newTestService(t, nil, repo, pub)}

	batch, err := json.Marshal([]*Request{referenceRequest("CALL"), referenceRequest("PUT")})
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), []byte("REF"), batch))
	assert.Len(t, repo.list, 2)
	assert.Equal(t, 2, pub.count())

	bad := referenceRequest("CALL")
	bad.Type = "X"
	batch, _ = json.Marshal([]*Request{referenceRequest("CALL"), bad})
	err = c.handle(context.Background(), nil, batch)
	assert.EqualError(t, err, "1 of 2 pricing requests failed")
	assert.Len(t, repo.list, 3)

	assert.Error(t, c.handle(context.Background(), nil, []byte("{")))
}

// =============================================================================
// 发布
// =============================================================================

func TestKafkaEventPublisher(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, TopicValuations, msg.Topic)
		key, _ := msg.Key.Encode()
		assert.Equal(t, "REF", string(key))

		raw, _ := msg.Value.Encode()
		var v Valuation
		if assert.NoError(t, json.Unmarshal(raw, &v)) {
			assert.Equal(t, "CALL", v.OptionType)
			assert.InDelta(t, 4.759422392871535, v.Price.InexactFloat64(), 1e-12)
		}
		return nil
	})

	producer := kafka.NewProducerFrom(mp)
	svc := newTestService(t, nil, nil, NewKafkaEventPublisher(producer))

	_, err := svc.Value(context.Background(), referenceRequest("CALL"))
	require.NoError(t, err)
	require.NoError(t, producer.Close())
	assert.Equal(t, int64(1), producer.Stats().SentCount)
	assert.Equal(t, int64(0), producer.Stats().ErrorCount)
}

func TestMultiPublisher(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("down")}
	multi := MultiPublisher{failing, ok}

	err := multi.Publish(context.Background(), &Valuation{Symbol: "REF"})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count())

	assert.Equal(t, "valuation.REF", (&Valuation{Symbol: "REF"}).Subject())
}
