// internal/service/order/internal/infrastructure/kafka_publisher.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/wangyingjie930/orderflow/internal/pkg/mq"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// KafkaStatusPublisher 实现了 port.StatusEventPublisher 接口。
// 消息以订单 ID 作为 key，保证同一订单的事件落在同一分区、保持顺序。
type KafkaStatusPublisher struct {
	writer mq.MessageWriter
}

// NewKafkaStatusPublisher 创建一个新的状态事件生产者适配器。
func NewKafkaStatusPublisher(writer mq.MessageWriter) *KafkaStatusPublisher {
	return &KafkaStatusPublisher{writer: writer}
}

func (p *KafkaStatusPublisher) PublishStatusChanged(ctx context.Context, event domain.OrderStatusChanged) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal order status event")
	}

	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	err = mq.ProduceMessage(ctx, p.writer, []byte(strconv.FormatUint(event.OrderID, 10)), eventBytes,
		kafka.Header{Key: "event-type", Value: []byte("OrderStatusChanged")},
	)
	return pkgerrors.Wrapf(err, "produce status event for order %d", event.OrderID)
}
