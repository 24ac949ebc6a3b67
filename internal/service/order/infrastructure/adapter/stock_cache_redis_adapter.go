package adapter

import (
	"context"
	"fmt"

	"mall/internal/pkg/redis"
	"mall/internal/service/order/domain/port"
)

const refillScriptName = "stock_refill"

// StockCacheRedisAdapter 是 port.StockCache 的 Redis 实现，维护热点库存的缓存计数。
// 只在 key 已存在时做 INCRBY：被淘汰的计数器由读路径按数据库回源重建，
// 这里凭空 INCRBY 会把它复活成一个错误值。
type StockCacheRedisAdapter struct {
	redisClient *redis.Client
}

var _ port.StockCache = (*StockCacheRedisAdapter)(nil)

// NewStockCacheRedisAdapter 创建库存缓存适配器，创建时加载所需的 Lua 脚本。
func NewStockCacheRedisAdapter(redisClient *redis.Client) (*StockCacheRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(refillScriptName, refillScript); err != nil {
		return nil, fmt.Errorf("failed to load stock refill script: %w", err)
	}
	return &StockCacheRedisAdapter{redisClient: redisClient}, nil
}

// Refill 把取消订单释放的数量加回缓存计数器。
func (a *StockCacheRedisAdapter) Refill(ctx context.Context, skuID int64, quantity int) error {
	key := fmt.Sprintf("stock:sku:{%d}", skuID)

	result, err := a.redisClient.RunScript(ctx, refillScriptName, []string{key}, quantity)
	if err != nil {
		return fmt.Errorf("stock cache refill failed for sku %d: %w", skuID, err)
	}

	if _, ok := result.(int64); !ok {
		return fmt.Errorf("unexpected result type from refill script: %T", result)
	}
	// 返回 -1 表示计数器不在缓存里（冷 key），属于正常情况。
	return nil
}

var refillScript = `
-- KEYS[1]: 库存计数器 Key, 例如: stock:sku:{1001}
-- ARGV[1]: 需要加回的数量

-- 只有计数器存在时才加回去，避免复活被淘汰的 key
if redis.call('exists', KEYS[1]) == 1 then
    return redis.call('incrby', KEYS[1], ARGV[1])
end
return -1
`
