// internal/service/order/application/sweeper.go
package application

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/metrics"
	"mall/internal/service/order/application/rule"
	"mall/internal/service/order/domain"
)

// CycleLock 保证多实例部署时同一轮清扫只有一个执行者。
// Acquire 抢不到锁时返回 ok=false，调用方应跳过本轮；release 在 ok=true 时非 nil。
type CycleLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// SweeperConfig 是清扫器的可调参数。
type SweeperConfig struct {
	Window   time.Duration // 支付超时窗口，参考部署为 30 分钟
	Interval time.Duration // 清扫周期，参考部署为 1 分钟
	Workers  int           // 单轮内并发取消的订单数上限
}

// Report 是单轮清扫的聚合结果。
type Report struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Exempted  int `json:"exempted"`
}

// Sweeper 周期性扫描超时未支付的订单并逐单驱动取消。
//
// 失败的订单状态不变，下一轮会被重新选中——用"下轮重选"代替显式重试，
// 代价是最多多等一个周期，但没有重试风暴。
type Sweeper struct {
	svc     *TimeoutService
	orders  domain.OrderRepository
	cfg     SweeperConfig
	exempt  *rule.ExemptFilter // 可为 nil
	lock    CycleLock          // 可为 nil
	metrics *metrics.SweeperMetrics
	tracer  trace.Tracer

	now     func() time.Time
	running atomic.Bool
}

func NewSweeper(
	svc *TimeoutService,
	orders domain.OrderRepository,
	cfg SweeperConfig,
	exempt *rule.ExemptFilter,
	lock CycleLock,
	m *metrics.SweeperMetrics,
	tracer trace.Tracer,
) *Sweeper {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Sweeper{
		svc:     svc,
		orders:  orders,
		cfg:     cfg,
		exempt:  exempt,
		lock:    lock,
		metrics: m,
		tracer:  tracer,
		now:     time.Now,
	}
}

// Start 启动定时清扫循环，ctx 取消时返回。这是一个长期运行的方法。
func (s *Sweeper) Start(ctx context.Context) {
	logger.Ctx(ctx).Info().
		Dur("interval", s.cfg.Interval).
		Dur("window", s.cfg.Window).
		Int("workers", s.cfg.Workers).
		Msg("order timeout sweeper started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("order timeout sweeper shutting down")
			return
		}
	}
}

// sweep 执行一轮带防重叠保护的清扫。
func (s *Sweeper) sweep(ctx context.Context) {
	// 上一轮还没结束就跳过本次 tick，周期之间永不重叠。
	if !s.running.CompareAndSwap(false, true) {
		logger.Ctx(ctx).Warn().Msg("previous sweep cycle still running, tick skipped")
		s.metrics.Cycles.WithLabelValues("skipped").Inc()
		return
	}
	defer s.running.Store(false)

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		if err != nil {
			// 锁服务故障时降级为单实例保护，清扫本身照常执行。
			logger.Ctx(ctx).Warn().Err(err).Msg("cycle lock unavailable, sweeping without it")
		} else if !ok {
			logger.Ctx(ctx).Debug().Msg("another instance holds the sweep lock, cycle skipped")
			s.metrics.Cycles.WithLabelValues("skipped").Inc()
			return
		} else {
			defer release()
		}
	}

	s.RunOnce(ctx)
}

// RunOnce 立即执行一轮清扫并返回聚合结果。
// 定时器、管理接口和测试都走这个入口；单个订单的失败只计数，不中断同轮其他订单。
func (s *Sweeper) RunOnce(ctx context.Context) Report {
	cycleID := uuid.New().String()
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "sweeper.RunOnce", trace.WithAttributes(
		attribute.String("sweep.cycle_id", cycleID),
	))
	defer span.End()

	cutoff := start.Add(-s.cfg.Window)
	orders, err := s.orders.FindTimedOutPending(ctx, cutoff)
	if err != nil {
		// 查询失败是周期级失败：记录后等下一个周期，调度本身不受影响。
		logger.Ctx(ctx).Error().Err(err).
			Str("cycle_id", cycleID).
			Msg("sweep cycle query failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "timed-out order query failed")
		s.metrics.Cycles.WithLabelValues("error").Inc()
		return Report{}
	}

	if len(orders) == 0 {
		// 空轮是常态，不是错误。
		s.metrics.Cycles.WithLabelValues("empty").Inc()
		s.metrics.CycleDuration.Observe(float64(s.now().Sub(start).Milliseconds()))
		return Report{}
	}

	var succeeded, failed, exempted atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for _, order := range orders {
		order := order
		g.Go(func() error {
			// worker 永远不向 errgroup 返回错误：
			// 一个订单的失败不允许波及同一轮里的其他订单。
			switch s.cancelOne(ctx, order) {
			case outcomeSucceeded:
				succeeded.Add(1)
			case outcomeFailed:
				failed.Add(1)
			case outcomeExempted:
				exempted.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Attempted: len(orders),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Exempted:  int(exempted.Load()),
	}

	s.metrics.Cycles.WithLabelValues("ok").Inc()
	s.metrics.CycleDuration.Observe(float64(s.now().Sub(start).Milliseconds()))
	span.SetAttributes(
		attribute.Int("sweep.attempted", report.Attempted),
		attribute.Int("sweep.succeeded", report.Succeeded),
		attribute.Int("sweep.failed", report.Failed),
	)
	logger.Ctx(ctx).Info().
		Str("cycle_id", cycleID).
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("exempted", report.Exempted).
		Msg("sweep cycle finished")
	return report
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeExempted
)

func (s *Sweeper) cancelOne(ctx context.Context, order *domain.Order) outcome {
	if s.exempt != nil {
		skip, err := s.exempt.Match(order)
		if err != nil {
			// 规则求值失败按不豁免处理，照常取消。
			logger.Ctx(ctx).Warn().Err(err).
				Str("order_sn", order.OrderSN).
				Msg("exempt rule evaluation failed, order not exempted")
		} else if skip {
			s.metrics.Orders.WithLabelValues("exempted").Inc()
			return outcomeExempted
		}
	}

	err := s.svc.Cancel(ctx, order, ReasonPaymentTimeout)
	if err == nil {
		s.metrics.Orders.WithLabelValues("success").Inc()
		return outcomeSucceeded
	}

	// 状态冲突/非法流转说明订单已经越过了取消闸门（比如刚好付款了），
	// 和基础设施失败分开上报：前者下一轮不会再被选中，后者会。
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) || errors.Is(err, domain.ErrStateConflict) {
		logger.Ctx(ctx).Info().Err(err).
			Str("order_sn", order.OrderSN).
			Msg("order no longer cancellable, skipping")
		s.metrics.Orders.WithLabelValues("conflict").Inc()
	} else {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_sn", order.OrderSN).
			Msg("order cancellation failed, will retry next cycle")
		s.metrics.Orders.WithLabelValues("failure").Inc()
	}
	return outcomeFailed
}
