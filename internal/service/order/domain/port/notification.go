package port

import (
	"context"

	"mall/internal/service/order/domain"
)

// NotificationProducer 是通知服务的出站端口。
// 发送是尽力而为的：取消事务提交后失败只记日志，不回滚业务。
type NotificationProducer interface {
	SendOrderCancelled(ctx context.Context, event *domain.OrderCancelledEvent) error
}
