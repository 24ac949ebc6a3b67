package application

import (
	"context"
	"sync"
	"time"

	"mall/internal/service/order/domain"
)

// fakeOrderRepo 用内存 map 模拟持久化状态：查询返回副本，
// 只有 Update 成功才会写回 store，方便断言"失败的订单状态不变"。
type fakeOrderRepo struct {
	mu         sync.Mutex
	store      map[string]*domain.Order
	items      map[int64][]*domain.OrderItem
	findErr    error
	updateErr  map[string]error
	findCalls  int
	lastCutoff time.Time
	updates    []string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		store:     make(map[string]*domain.Order),
		items:     make(map[int64][]*domain.OrderItem),
		updateErr: make(map[string]error),
	}
}

func (r *fakeOrderRepo) add(order domain.Order, items ...*domain.OrderItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := order
	r.store[order.OrderSN] = &cp
	r.items[order.ID] = items
}

func (r *fakeOrderRepo) statusOf(sn string) domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store[sn].Status
}

func (r *fakeOrderRepo) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	r.lastCutoff = cutoff
	if r.findErr != nil {
		return nil, r.findErr
	}
	var result []*domain.Order
	for _, o := range r.store {
		if o.Status == domain.StatePendingPayment && o.CreatedAt.Before(cutoff) {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeOrderRepo) FindBySN(ctx context.Context, sn string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.store[sn]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) FindItemsByOrder(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[orderID], nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[order.OrderSN]; err != nil {
		return err
	}
	stored, ok := r.store[order.OrderSN]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != order.PreviousStatus() {
		return domain.ErrStateConflict
	}
	cp := *order
	r.store[order.OrderSN] = &cp
	r.updates = append(r.updates, order.OrderSN)
	return nil
}

// fakeTxManager 顺序执行闭包，不模拟回滚——回滚语义由 GORM 集成环境覆盖。
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLedger struct {
	mu         sync.Mutex
	increments map[int64]int
	err        error
	calls      int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{increments: make(map[int64]int)}
}

func (l *fakeLedger) IncreaseStock(ctx context.Context, skuID int64, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	l.increments[skuID] += quantity
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*domain.OrderCancelledEvent
	err    error
}

func (n *fakeNotifier) SendOrderCancelled(ctx context.Context, event *domain.OrderCancelledEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	refills map[int64]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{refills: make(map[int64]int)}
}

func (c *fakeCache) Refill(ctx context.Context, skuID int64, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refills[skuID] += quantity
	return nil
}

type fakeCycleLock struct {
	ok       bool
	err      error
	acquired int
	released int
}

func (l *fakeCycleLock) Acquire(ctx context.Context) (func(), bool, error) {
	l.acquired++
	if l.err != nil {
		return nil, false, l.err
	}
	if !l.ok {
		return nil, false, nil
	}
	return func() { l.released++ }, true, nil
}
