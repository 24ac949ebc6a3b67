package port

import "context"

// StockCache 维护 Redis 中的热点库存计数，作为数据库台账的读侧镜像。
type StockCache interface {
	// Refill 在取消补偿提交后，把数量加回对应 SKU 的缓存计数器。
	Refill(ctx context.Context, skuID int64, quantity int) error
}
