// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mall/internal/service/order/domain"
)

type ctxTxKey struct{}

// GormTxManager 是 domain.TxManager 的 GORM 实现。
// 事务句柄放进 ctx 向下传递，同一个 ctx 下的仓储和库存台账自动落在同一个事务里。
type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxTxKey{}, tx))
	})
}

// dbFromContext 优先取 ctx 里的事务句柄，没有事务时退回普通连接。
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := dbFromContext(ctx, r.db).
		Where("status = ? AND created_at < ?", string(domain.StatePendingPayment), cutoff).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "query timed-out pending orders")
	}

	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

func (r *GormOrderRepository) FindBySN(ctx context.Context, sn string) (*domain.Order, error) {
	var m OrderModel
	err := dbFromContext(ctx, r.db).Where("order_sn = ?", sn).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find order %s", sn)
	}
	return ToDomainOrder(&m), nil
}

func (r *GormOrderRepository) FindItemsByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	var models []OrderItemModel
	err := dbFromContext(ctx, r.db).Where("order_id = ?", orderID).Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "query items of order %d", orderID)
	}

	items := make([]*domain.OrderItem, 0, len(models))
	for i := range models {
		items = append(items, ToDomainOrderItem(&models[i]))
	}
	return items, nil
}

// Update 持久化订单的可变字段。
// WHERE 条件带上加载时的状态做乐观并发校验：并发流转先落库的一方赢，
// 输的一方更新不到任何行，返回 ErrStateConflict 让事务整体回滚。
// 这个状态闸门保证同一订单的库存补偿不会被执行两次。
func (r *GormOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	updates := map[string]interface{}{
		"status":       string(order.Status),
		"pay_amount":   order.PayAmount,
		"paid_at":      order.PaidAt,
		"shipped_at":   order.ShippedAt,
		"completed_at": order.CompletedAt,
		"cancelled_at": order.CancelledAt,
	}
	res := dbFromContext(ctx, r.db).Model(&OrderModel{}).
		Where("id = ? AND status = ?", order.ID, string(order.PreviousStatus())).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update order %s", order.OrderSN)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStateConflict
	}
	return nil
}
