// internal/service/order/domain/order.go
package domain

import "time"

// Order 是订单聚合的根实体。
// 金额为下单/支付时刻的快照，单位为分；各时间戳只会被对应的状态流转写入一次，
// 之后不再变更。
type Order struct {
	ID      int64
	OrderSN string
	UserID  int64
	ShopID  int64

	Status State

	TotalAmount int64
	PayAmount   int64

	CreatedAt   time.Time
	PaidAt      *time.Time
	ShippedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// prev 记录最近一次流转前的状态，持久化层用它做乐观并发校验。
	prev State
}

// OrderItem 是订单行项目。价格是下单时刻的快照，之后不再回读商品目录。
type OrderItem struct {
	ID       int64
	OrderID  int64
	SkuID    int64
	Quantity int
	Price    int64
}

// apply 是实体修改状态的唯一合法路径：先过状态机，合法才落时间戳。
func (o *Order) apply(event Event, now time.Time) error {
	next, err := Next(o.Status, event)
	if err != nil {
		return err
	}
	o.prev = o.Status
	o.Status = next

	switch event {
	case EventPay:
		if o.PaidAt == nil {
			t := now
			o.PaidAt = &t
		}
	case EventShip:
		if o.ShippedAt == nil {
			t := now
			o.ShippedAt = &t
		}
	case EventComplete:
		if o.CompletedAt == nil {
			t := now
			o.CompletedAt = &t
		}
	case EventCancel:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
	return nil
}

// Pay 支付订单，同时写入实付金额快照。
func (o *Order) Pay(now time.Time, amount int64) error {
	if err := o.apply(EventPay, now); err != nil {
		return err
	}
	o.PayAmount = amount
	return nil
}

// Ship 发货。
func (o *Order) Ship(now time.Time) error {
	return o.apply(EventShip, now)
}

// Complete 完成订单。
func (o *Order) Complete(now time.Time) error {
	return o.apply(EventComplete, now)
}

// Cancel 取消订单。只有待支付和已支付的订单可以取消。
func (o *Order) Cancel(now time.Time) error {
	return o.apply(EventCancel, now)
}

// PreviousStatus 返回最近一次流转前的状态；尚未流转时即当前状态。
func (o *Order) PreviousStatus() State {
	if o.prev == "" {
		return o.Status
	}
	return o.prev
}
