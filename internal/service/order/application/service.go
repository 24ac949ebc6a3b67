// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mall/internal/pkg/logger"
	"mall/internal/service/order/domain"
	"mall/internal/service/order/domain/port"
)

// 取消原因，会随通知事件一起发出去。
const (
	ReasonPaymentTimeout = "PAYMENT_TIMEOUT"
	ReasonManual         = "MANUAL"
)

// TimeoutService 负责订单取消这一个补偿事务：
// 状态机流转 + 逐项回补库存 + 持久化，三者在同一个数据库事务里要么全部生效要么全部不生效。
type TimeoutService struct {
	orders   domain.OrderRepository
	tx       domain.TxManager
	ledger   port.InventoryLedger
	notifier port.NotificationProducer // 可为 nil
	cache    port.StockCache           // 可为 nil
	tracer   trace.Tracer

	now func() time.Time
}

func NewTimeoutService(
	orders domain.OrderRepository,
	tx domain.TxManager,
	ledger port.InventoryLedger,
	notifier port.NotificationProducer,
	cache port.StockCache,
	tracer trace.Tracer,
) *TimeoutService {
	return &TimeoutService{
		orders:   orders,
		tx:       tx,
		ledger:   ledger,
		notifier: notifier,
		cache:    cache,
		tracer:   tracer,
		now:      time.Now,
	}
}

// Cancel 尝试把一个已加载的订单流转到 CANCELLED 并回补其库存占用。
//
// 状态机先行：非法流转直接返回 *domain.InvalidTransitionError，不碰任何持久化状态。
// 之后的库存回补和订单更新在同一个事务内提交；Update 带乐观状态校验，
// 输掉并发竞争时整个事务回滚并返回 domain.ErrStateConflict。
func (s *TimeoutService) Cancel(ctx context.Context, order *domain.Order, reason string) error {
	ctx, span := s.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(
		attribute.String("order.sn", order.OrderSN),
		attribute.String("order.status", string(order.Status)),
		attribute.String("cancel.reason", reason),
	))
	defer span.End()

	if err := order.Cancel(s.now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel not allowed in current state")
		return err
	}

	items, err := s.orders.FindItemsByOrder(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load order items")
		return errors.Wrapf(err, "load items of order %s", order.OrderSN)
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		for _, item := range items {
			if err := s.ledger.IncreaseStock(txCtx, item.SkuID, item.Quantity); err != nil {
				return errors.Wrapf(err, "restock sku %d for order %s", item.SkuID, order.OrderSN)
			}
		}
		return s.orders.Update(txCtx, order)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancellation unit of work failed")
		return err
	}
	span.AddEvent("order cancelled and stock restored")

	// 事务提交之后的动作都是尽力而为：失败只记日志，绝不让已提交的取消"失败"。
	s.refillStockCache(ctx, order, items)
	s.notifyCancelled(ctx, order, reason)
	return nil
}

// CancelBySN 按订单号取消，供管理接口的显式取消使用。
func (s *TimeoutService) CancelBySN(ctx context.Context, sn, reason string) error {
	order, err := s.orders.FindBySN(ctx, sn)
	if err != nil {
		return err
	}
	return s.Cancel(ctx, order, reason)
}

func (s *TimeoutService) refillStockCache(ctx context.Context, order *domain.Order, items []*domain.OrderItem) {
	if s.cache == nil {
		return
	}
	for _, item := range items {
		if err := s.cache.Refill(ctx, item.SkuID, item.Quantity); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("order_sn", order.OrderSN).
				Int64("sku_id", item.SkuID).
				Msg("failed to refill stock cache after cancellation")
		}
	}
}

func (s *TimeoutService) notifyCancelled(ctx context.Context, order *domain.Order, reason string) {
	if s.notifier == nil {
		return
	}
	event := &domain.OrderCancelledEvent{
		EventID: uuid.New().String(),
		OrderSN: order.OrderSN,
		UserID:  order.UserID,
		Reason:  reason,
	}
	if order.CancelledAt != nil {
		event.CancelledAt = *order.CancelledAt
	}
	if err := s.notifier.SendOrderCancelled(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_sn", order.OrderSN).
			Msg("failed to send order cancelled notification")
	}
}
