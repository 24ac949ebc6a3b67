// cmd/order-sweeper/main.go
package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/logger"
	"mall/internal/pkg/metrics"
	"mall/internal/pkg/mq"
	redispkg "mall/internal/pkg/redis"
	"mall/internal/pkg/zookeeper"
	"mall/internal/service/order/application"
	"mall/internal/service/order/application/rule"
	"mall/internal/service/order/domain/port"
	"mall/internal/service/order/infrastructure"
	"mall/internal/service/order/infrastructure/adapter"
	"mall/internal/service/order/interfaces"
)

const serviceName = "order-sweeper"

// main 函数是应用的"组装根" (Composition Root)：
// 创建并组装所有依赖项，然后交给 bootstrap 启动。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	logger.Init(serviceName)

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to mysql: %v", err)
	}

	orderRepo := infrastructure.NewGormOrderRepository(db)
	ledger := infrastructure.NewGormInventoryLedger(db)
	txManager := infrastructure.NewGormTxManager(db)

	var onShutdown []func(ctx context.Context)

	// 通知生产者：没配 Kafka 就静默降级，取消照常执行
	var notifier port.NotificationProducer
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic)
		kafkaNotifier := adapter.NewNotificationKafkaAdapter(writer)
		notifier = kafkaNotifier
		onShutdown = append(onShutdown, func(ctx context.Context) {
			if err := kafkaNotifier.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
		})
	}

	// 库存缓存：同样可选
	var cache port.StockCache
	if cfg.Infra.Redis.Addr != "" {
		redisClient := redispkg.NewClient(cfg.Infra.Redis.Addr)
		cacheAdapter, err := adapter.NewStockCacheRedisAdapter(redisClient)
		if err != nil {
			log.Fatalf("FATAL: failed to initialize stock cache adapter: %v", err)
		}
		cache = cacheAdapter
		onShutdown = append(onShutdown, func(ctx context.Context) {
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		})
	}

	tracer := otel.Tracer(serviceName)
	service := application.NewTimeoutService(orderRepo, txManager, ledger, notifier, cache, tracer)

	var exemptFilter *rule.ExemptFilter
	if cfg.App.ExemptRule != "" {
		exemptFilter, err = rule.NewExemptFilter(cfg.App.ExemptRule)
		if err != nil {
			log.Fatalf("FATAL: invalid exempt rule: %v", err)
		}
	}

	// 跨实例清扫锁：多副本部署时保证每轮只有一个执行者
	var cycleLock application.CycleLock
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 10*time.Second)
		if err != nil {
			log.Fatalf("FATAL: failed to connect to zookeeper: %v", err)
		}
		cycleLock = adapter.NewZkCycleLockAdapter(zkConn, cfg.Infra.Zookeeper.LockPath, 3*time.Second)
		onShutdown = append(onShutdown, func(ctx context.Context) { zkConn.Close() })
	}

	sweeper := application.NewSweeper(
		service,
		orderRepo,
		application.SweeperConfig{
			Window:   cfg.App.PaymentTimeout.Std(),
			Interval: cfg.App.SweepInterval.Std(),
			Workers:  cfg.App.SweepWorkers,
		},
		exemptFilter,
		cycleLock,
		metrics.NewSweeperMetrics(),
		tracer,
	)

	handler := interfaces.NewSweeperHandler(sweeper, service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		Run:        sweeper.Start,
		OnShutdown: onShutdown,
	})
}
