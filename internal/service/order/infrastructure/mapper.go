// internal/service/order/infrastructure/mapper.go
package infrastructure

import "mall/internal/service/order/domain"

// ToDomainOrder 把数据库模型转换为领域模型。
func ToDomainOrder(m *OrderModel) *domain.Order {
	return &domain.Order{
		ID:          m.ID,
		OrderSN:     m.OrderSN,
		UserID:      m.UserID,
		ShopID:      m.ShopID,
		Status:      domain.State(m.Status),
		TotalAmount: m.TotalAmount,
		PayAmount:   m.PayAmount,
		CreatedAt:   m.CreatedAt,
		PaidAt:      m.PaidAt,
		ShippedAt:   m.ShippedAt,
		CompletedAt: m.CompletedAt,
		CancelledAt: m.CancelledAt,
	}
}

// ToDomainOrderItem 把订单行项目模型转换为领域模型。
func ToDomainOrderItem(m *OrderItemModel) *domain.OrderItem {
	return &domain.OrderItem{
		ID:       m.ID,
		OrderID:  m.OrderID,
		SkuID:    m.SkuID,
		Quantity: m.Quantity,
		Price:    m.Price,
	}
}
