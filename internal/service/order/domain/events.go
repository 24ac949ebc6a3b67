// internal/service/order/domain/events.go
package domain

import "time"

// OrderCancelledEvent 是订单取消成功后发往通知主题的领域事件。
type OrderCancelledEvent struct {
	EventID     string    `json:"event_id"`
	OrderSN     string    `json:"order_sn"`
	UserID      int64     `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}
