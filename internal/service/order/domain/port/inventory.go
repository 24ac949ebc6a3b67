package port

import "context"

// InventoryLedger 是库存台账的出站端口。
type InventoryLedger interface {
	// IncreaseStock 把被取消订单占用的数量加回对应 SKU 的可售库存。
	// 幂等性由调用方（取消操作的状态闸门）负责，台账本身不去重。
	IncreaseStock(ctx context.Context, skuID int64, quantity int) error
}
