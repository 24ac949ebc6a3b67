package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"mall/internal/pkg/mq"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 订单被取消后向通知主题发一条事件，由下游通知服务提醒用户。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

var _ port.NotificationProducer = (*NotificationKafkaAdapter)(nil)

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

func (a *NotificationKafkaAdapter) SendOrderCancelled(ctx context.Context, event *domain.OrderCancelledEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order cancelled event")
	}
	// mq.ProduceMessage 会自动注入追踪上下文。
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderSN), payload)
}

// Close 关闭底层的 Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
