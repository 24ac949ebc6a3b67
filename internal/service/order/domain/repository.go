// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrStateConflict 表示乐观并发校验失败：订单已被并发流转越过了状态闸门。
	// 库存补偿以此为闸门保证对同一订单不会执行两次。
	ErrStateConflict = errors.New("order state changed concurrently")
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// FindTimedOutPending 返回创建时间早于 cutoff 且仍处于待支付状态的订单。
	// 结果顺序不作保证，允许为空。
	FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*Order, error)

	// FindBySN 根据订单号查找订单；不存在时返回 ErrOrderNotFound。
	FindBySN(ctx context.Context, sn string) (*Order, error)

	// FindItemsByOrder 返回订单的全部行项目。
	FindItemsByOrder(ctx context.Context, orderID int64) ([]*OrderItem, error)

	// Update 持久化订单当前字段值；必须原子生效，不允许半写。
	Update(ctx context.Context, order *Order) error
}

// TxManager 把一组持久化操作包进同一个事务，事务句柄通过 ctx 向下传递，
// 仓储与库存台账在同一个 ctx 下天然共享事务。
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
