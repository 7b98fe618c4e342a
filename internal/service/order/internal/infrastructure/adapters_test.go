package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

func TestCachedOrderRoundTrip(t *testing.T) {
	updated := base.Add(time.Hour)
	in := &domain.Order{
		ID: 9, Email: "c@example.com", Amount: 3.5, Description: "x",
		Status: domain.StatusShipped, CreatedAt: base, UpdatedAt: &updated,
	}
	raw, err := encodeCachedOrder(in)
	require.NoError(t, err)

	out, err := decodeCachedOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.NotNil(t, out.UpdatedAt)
	assert.True(t, updated.Equal(*out.UpdatedAt))

	_, err = decodeCachedOrder([]byte("{"))
	assert.Error(t, err)
}

func TestRedisCacheReportsUnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisOrderCache(client, time.Minute)

	_, err := cache.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get order 1")
	assert.Error(t, cache.Invalidate(context.Background(), 1))
}

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaStatusPublisher(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaStatusPublisher(w)

	event := domain.OrderStatusChanged{
		EventID: "e-1", OrderID: 42,
		From: domain.StatusPending, To: domain.StatusConfirmed,
		Operation: domain.OperationConfirm, OccurredAt: base,
	}
	require.NoError(t, pub.PublishStatusChanged(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "PENDING", body["from"])
	assert.Equal(t, "CONFIRMED", body["to"])
	assert.Equal(t, "confirm", body["operation"])
	assert.EqualValues(t, 42, body["orderId"])

	var sawType bool
	for _, h := range msg.Headers {
		if h.Key == "event-type" {
			sawType = string(h.Value) == "OrderStatusChanged"
		}
	}
	assert.True(t, sawType)

	w.err = errors.New("broker down")
	err := pub.PublishStatusChanged(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 42")
}
