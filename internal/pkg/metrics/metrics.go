// internal/pkg/metrics/metrics.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

// SweeperMetrics 汇总清扫器的运行指标。
type SweeperMetrics struct {
	// Cycles 按结果统计清扫轮次: ok | empty | error | skipped
	Cycles *prometheus.CounterVec
	// Orders 按结果统计被处理的超时订单: success | failure | conflict | exempted
	Orders *prometheus.CounterVec
	// CycleDuration 单轮清扫耗时
	CycleDuration prometheus.Histogram
}

// NewSweeperMetrics 注册到默认 Registry。
func NewSweeperMetrics() *SweeperMetrics {
	return NewSweeperMetricsWith(prometheus.DefaultRegisterer)
}

// NewSweeperMetricsWith 注册到指定 Registry，测试用独立 Registry 避免重复注册冲突。
func NewSweeperMetricsWith(reg prometheus.Registerer) *SweeperMetrics {
	m := &SweeperMetrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall",
			Subsystem: "order_sweeper",
			Name:      "cycles_total",
			Help:      "Total number of sweep cycles by result.",
		}, []string{"result"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall",
			Subsystem: "order_sweeper",
			Name:      "orders_total",
			Help:      "Timed-out orders processed, by outcome.",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mall",
			Subsystem: "order_sweeper",
			Name:      "cycle_duration_ms",
			Help:      "Sweep cycle duration in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
	}
	reg.MustRegister(m.Cycles, m.Orders, m.CycleDuration)
	return m
}
