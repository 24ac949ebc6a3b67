package adapter

import (
	"context"
	"time"

	"mall/internal/pkg/logger"
	"mall/internal/pkg/zookeeper"
	"mall/internal/service/order/application"
)

// ZkCycleLockAdapter 是 application.CycleLock 的 ZooKeeper 实现。
// 多实例部署时每轮清扫先抢锁，抢不到说明别的实例正在扫，本轮直接跳过。
type ZkCycleLockAdapter struct {
	conn     *zookeeper.Conn
	resource string
	wait     time.Duration
}

var _ application.CycleLock = (*ZkCycleLockAdapter)(nil)

func NewZkCycleLockAdapter(conn *zookeeper.Conn, resource string, wait time.Duration) *ZkCycleLockAdapter {
	return &ZkCycleLockAdapter{conn: conn, resource: resource, wait: wait}
}

func (a *ZkCycleLockAdapter) Acquire(ctx context.Context) (func(), bool, error) {
	lock, err := zookeeper.NewDistributedLock(a.conn, a.resource)
	if err != nil {
		return nil, false, err
	}

	acquired, err := lock.Lock(a.wait)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to release sweep cycle lock")
		}
	}
	return release, true, nil
}
