package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"mall/internal/service/order/domain"
)

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	svc      *TimeoutService
	repo     *fakeOrderRepo
	ledger   *fakeLedger
	notifier *fakeNotifier
	cache    *fakeCache
}

func newServiceFixture() *serviceFixture {
	repo := newFakeOrderRepo()
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	cache := newFakeCache()

	svc := NewTimeoutService(repo, fakeTxManager{}, ledger, notifier, cache, noop.NewTracerProvider().Tracer("test"))
	svc.now = func() time.Time { return testNow }

	return &serviceFixture{svc: svc, repo: repo, ledger: ledger, notifier: notifier, cache: cache}
}

func pendingOrder(id int64, sn string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		OrderSN:     sn,
		UserID:      7,
		ShopID:      3,
		Status:      domain.StatePendingPayment,
		TotalAmount: 25900,
		CreatedAt:   createdAt,
	}
}

func TestCancelRestoresStockExactly(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(pendingOrder(1, "SN-1", testNow.Add(-time.Hour)),
		&domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 2, Price: 9900},
		&domain.OrderItem{ID: 2, OrderID: 1, SkuID: 102, Quantity: 5, Price: 1220},
	)

	order, err := f.repo.FindBySN(context.Background(), "SN-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), order, ReasonPaymentTimeout))

	// 每个 SKU 恰好加回原扣减数量，不多不少
	assert.Equal(t, map[int64]int{101: 2, 102: 5}, f.ledger.increments)

	assert.Equal(t, domain.StateCancelled, f.repo.statusOf("SN-1"))
	require.NotNil(t, order.CancelledAt)
	assert.False(t, order.CancelledAt.Before(order.CreatedAt))

	// 提交后的尽力而为动作也都发生了
	assert.Equal(t, map[int64]int{101: 2, 102: 5}, f.cache.refills)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "SN-1", f.notifier.events[0].OrderSN)
	assert.Equal(t, ReasonPaymentTimeout, f.notifier.events[0].Reason)
}

func TestCancelAlreadyTerminalHasNoSideEffects(t *testing.T) {
	for _, status := range []domain.State{domain.StateCompleted, domain.StateCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newServiceFixture()
			order := pendingOrder(1, "SN-1", testNow.Add(-time.Hour))
			order.Status = status
			f.repo.add(order, &domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 2})

			loaded, err := f.repo.FindBySN(context.Background(), "SN-1")
			require.NoError(t, err)

			err = f.svc.Cancel(context.Background(), loaded, ReasonPaymentTimeout)

			var invalid *domain.InvalidTransitionError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, status, invalid.From)

			// 零副作用：没有库存调整、没有写库、没有通知
			assert.Equal(t, 0, f.ledger.calls)
			assert.Empty(t, f.repo.updates)
			assert.Empty(t, f.notifier.events)
			assert.Equal(t, status, f.repo.statusOf("SN-1"))
		})
	}
}

func TestCancelPersistenceFailure(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(pendingOrder(1, "SN-1", testNow.Add(-time.Hour)),
		&domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 2})
	f.repo.updateErr["SN-1"] = errors.New("connection reset")

	order, err := f.repo.FindBySN(context.Background(), "SN-1")
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), order, ReasonPaymentTimeout)
	require.Error(t, err)

	// 持久化状态不变，下一轮还会被选中；通知也不能发
	assert.Equal(t, domain.StatePendingPayment, f.repo.statusOf("SN-1"))
	assert.Empty(t, f.notifier.events)
	assert.Empty(t, f.cache.refills)
}

func TestCancelLedgerFailureAbortsUnitOfWork(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(pendingOrder(1, "SN-1", testNow.Add(-time.Hour)),
		&domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 2})
	f.ledger.err = errors.New("deadlock detected")

	order, err := f.repo.FindBySN(context.Background(), "SN-1")
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), order, ReasonPaymentTimeout)
	require.Error(t, err)

	assert.Empty(t, f.repo.updates)
	assert.Equal(t, domain.StatePendingPayment, f.repo.statusOf("SN-1"))
	assert.Empty(t, f.notifier.events)
}

func TestCancelNotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(pendingOrder(1, "SN-1", testNow.Add(-time.Hour)),
		&domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 2})
	f.notifier.err = errors.New("broker unavailable")

	order, err := f.repo.FindBySN(context.Background(), "SN-1")
	require.NoError(t, err)

	// 通知是提交后的尽力而为动作，失败不影响已生效的取消
	require.NoError(t, f.svc.Cancel(context.Background(), order, ReasonPaymentTimeout))
	assert.Equal(t, domain.StateCancelled, f.repo.statusOf("SN-1"))
}

func TestCancelBySN(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(pendingOrder(1, "SN-1", testNow.Add(-time.Hour)),
		&domain.OrderItem{ID: 1, OrderID: 1, SkuID: 101, Quantity: 1})

	require.NoError(t, f.svc.CancelBySN(context.Background(), "SN-1", ReasonManual))
	assert.Equal(t, domain.StateCancelled, f.repo.statusOf("SN-1"))
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, ReasonManual, f.notifier.events[0].Reason)

	err := f.svc.CancelBySN(context.Background(), "SN-404", ReasonManual)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
