// internal/service/order/infrastructure/gorm_inventory.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mall/internal/service/order/domain/port"
)

// GormInventoryLedger 是 port.InventoryLedger 的 GORM 实现。
// 加库存用一条原子 UPDATE 完成，行级锁由数据库负责；
// 和订单更新跑在同一个 ctx 事务里时，要么一起提交要么一起回滚。
type GormInventoryLedger struct {
	db *gorm.DB
}

func NewGormInventoryLedger(db *gorm.DB) *GormInventoryLedger {
	return &GormInventoryLedger{db: db}
}

var _ port.InventoryLedger = (*GormInventoryLedger)(nil)

func (l *GormInventoryLedger) IncreaseStock(ctx context.Context, skuID int64, quantity int) error {
	if quantity <= 0 {
		return errors.Errorf("invalid restock quantity %d for sku %d", quantity, skuID)
	}

	res := dbFromContext(ctx, l.db).Model(&SkuStockModel{}).
		Where("sku_id = ?", skuID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "increase stock of sku %d", skuID)
	}
	if res.RowsAffected == 0 {
		return errors.Errorf("sku %d has no stock row", skuID)
	}
	return nil
}
