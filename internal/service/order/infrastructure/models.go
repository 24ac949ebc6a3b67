// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// OrderModel 是 Order 聚合在数据库中的表示。
type OrderModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	OrderSN     string    `gorm:"column:order_sn;type:varchar(64);uniqueIndex;not null"`
	UserID      int64     `gorm:"index;not null"`
	ShopID      int64     `gorm:"index;not null"`
	Status      string    `gorm:"type:varchar(20);index:idx_status_created;not null"`
	TotalAmount int64     `gorm:"not null"`
	PayAmount   int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"index:idx_status_created;not null"`
	PaidAt      *time.Time
	ShippedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 是订单行项目，随订单一起删除（组合关系）。
type OrderItemModel struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	OrderID  int64 `gorm:"index;not null"`
	SkuID    int64 `gorm:"index;not null"`
	Quantity int   `gorm:"not null"`
	Price    int64 `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// SkuStockModel 是各 SKU 的可售库存行，取消补偿的目标。
type SkuStockModel struct {
	SkuID     int64 `gorm:"column:sku_id;primaryKey"`
	Stock     int64 `gorm:"not null"`
	UpdatedAt time.Time
}

func (SkuStockModel) TableName() string {
	return "sku_stocks"
}
