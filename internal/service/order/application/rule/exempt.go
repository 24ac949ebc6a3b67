// internal/service/order/application/rule/exempt.go
package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"mall/internal/service/order/domain"
)

// ExemptFilter 用一条 CEL 布尔表达式决定哪些超时订单本轮不做自动取消。
// 表达式基于 order 变量求值，例如：
//
//	order.total_amount >= 1000000          // 大额订单转人工处理
//	order.shop_id in [101, 102]            // 指定店铺豁免
//
// 规则在启动时编译一次，清扫时对每个候选订单求值。
type ExemptFilter struct {
	program cel.Program
}

// NewExemptFilter 编译豁免规则。表达式有语法错误时直接失败，让服务启动时就暴露问题。
func NewExemptFilter(expr string) (*ExemptFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("order", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid exempt rule %q: %w", expr, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}
	return &ExemptFilter{program: program}, nil
}

// Match 返回该订单是否命中豁免规则。
func (f *ExemptFilter) Match(order *domain.Order) (bool, error) {
	out, _, err := f.program.Eval(map[string]interface{}{
		"order": map[string]interface{}{
			"order_sn":     order.OrderSN,
			"user_id":      order.UserID,
			"shop_id":      order.ShopID,
			"status":       string(order.Status),
			"total_amount": order.TotalAmount,
			"created_at":   order.CreatedAt.Unix(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("exempt rule evaluation failed: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("exempt rule must evaluate to bool, got %T", out.Value())
	}
	return matched, nil
}
