// internal/service/order/domain/state.go
package domain

import "fmt"

// State 定义了订单的生命周期状态。
type State string

const (
	StatePendingPayment State = "PENDING_PAYMENT" // 待支付
	StatePaid           State = "PAID"            // 已支付
	StateShipped        State = "SHIPPED"         // 已发货
	StateCompleted      State = "COMPLETED"       // 已完成 (终态)
	StateCancelled      State = "CANCELLED"       // 已取消 (终态, 用户主动或系统超时)
)

// Event 是驱动状态机流转的业务事件。
type Event string

const (
	EventPay      Event = "PAY"
	EventShip     Event = "SHIP"
	EventComplete Event = "COMPLETE"
	EventCancel   Event = "CANCEL"
)

// transitions 是 (当前状态, 事件) -> 下一状态 的完整流转表。
// 未出现在表中的组合一律非法，终态没有任何出边。
var transitions = map[State]map[Event]State{
	StatePendingPayment: {
		EventPay:    StatePaid,
		EventCancel: StateCancelled,
	},
	StatePaid: {
		EventShip:   StateShipped,
		EventCancel: StateCancelled,
	},
	StateShipped: {
		EventComplete: StateCompleted,
	},
}

// InvalidTransitionError 表示在当前状态下收到了非法事件。
// 调用方收到该错误后不得修改任何已持久化的状态。
type InvalidTransitionError struct {
	From  State
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %s not allowed in state %s", e.Event, e.From)
}

// Next 是纯函数形式的状态机：给定当前状态和事件，返回下一状态。
// 不做任何 I/O，可以安全地在持久化事务内同步调用。
func Next(current State, event Event) (State, error) {
	if next, ok := transitions[current][event]; ok {
		return next, nil
	}
	return "", &InvalidTransitionError{From: current, Event: event}
}

// IsTerminal 判断状态是否为终态。
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}
