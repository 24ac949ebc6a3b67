package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mall/internal/service/order/application"
	"mall/internal/service/order/domain"
)

// SweeperHandler 封装了清扫器的管理 HTTP 接口。
// 这是一个后台服务，对外只有运维面：健康检查、指标、手动触发。
type SweeperHandler struct {
	sweeper *application.Sweeper
	service *application.TimeoutService
}

// NewSweeperHandler 创建一个新的 HTTP 处理器实例。
func NewSweeperHandler(sweeper *application.Sweeper, service *application.TimeoutService) *SweeperHandler {
	return &SweeperHandler{sweeper: sweeper, service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *SweeperHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/sweep", h.runSweepHandler)
	mux.HandleFunc("/admin/orders/cancel", h.cancelOrderHandler)
}

// runSweepHandler 立即执行一轮清扫，同步返回聚合结果。
// 给 cron 外的手动触发和演练用，和定时器走同一个入口。
func (h *SweeperHandler) runSweepHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	report := h.sweeper.RunOnce(ctx)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// cancelOrderHandler 显式取消一个订单，走和超时取消完全相同的补偿路径。
func (h *SweeperHandler) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sn := r.URL.Query().Get("order_sn")
	if sn == "" {
		http.Error(w, "order_sn is required", http.StatusBadRequest)
		return
	}

	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	err := h.service.CancelBySN(ctx, sn, application.ReasonManual)

	var invalid *domain.InvalidTransitionError
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"order_sn": sn,
			"status":   string(domain.StateCancelled),
		})
	case errors.Is(err, domain.ErrOrderNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.As(err, &invalid), errors.Is(err, domain.ErrStateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "cancellation failed", http.StatusInternalServerError)
	}
}
