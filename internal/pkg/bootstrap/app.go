// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mall/internal/pkg/nacos"
	"mall/internal/pkg/tracing"
)

type AppCtx struct {
	Mux *http.ServeMux
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int

	// RegisterHandlers 允许每个服务注册自己独特的 HTTP 路由。
	RegisterHandlers func(appCtx AppCtx)

	// Run 启动常驻的后台任务（例如清扫循环），是一个阻塞调用，ctx 取消时必须返回。
	Run func(ctx context.Context)

	// OnShutdown 在 HTTP 服务停止后按顺序执行清理。
	OnShutdown []func(ctx context.Context)
}

// StartService 封装了服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg := GetCurrentConfig()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		log.Fatalf("FATAL: failed to initialize tracer provider: %v", err)
	}

	// 2. 服务注册（未配置 Nacos 地址时跳过，单机部署不强依赖注册中心）
	var namingClient *nacos.Client
	var ip string
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			log.Fatalf("FATAL: failed to initialize nacos client: %v", err)
		}
		ip, err = getOutboundIP()
		if err != nil {
			log.Fatalf("FATAL: failed to get outbound IP address: %v", err)
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Fatalf("FATAL: failed to register service with nacos: %v", err)
		}
	} else {
		log.Println("WARN: nacos server addrs not configured, skipping service registration")
	}

	// 3. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		log.Printf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v\n", server.Addr, err)
		}
	}()

	// 4. 启动后台任务
	runCtx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	if info.Run != nil {
		go func() {
			defer close(runDone)
			info.Run(runCtx)
		}()
	} else {
		close(runDone)
	}

	// 5. 阻塞主 goroutine，直到接收到退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 6. 按后进先出的顺序执行清理
	// a. 停掉后台任务，让进行中的清扫轮次跑完
	cancelRun()
	select {
	case <-runDone:
	case <-ctx.Done():
		log.Println("WARN: background task did not stop in time")
	}

	// b. 从 Nacos 注销服务
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Printf("Error deregistering from Nacos: %v", err)
		} else {
			log.Printf("Service %s deregistered from Nacos.", info.ServiceName)
		}
	}

	// c. 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down http server: %v", err)
	}

	// d. 业务方注册的清理（kafka writer、redis 连接等）
	for _, fn := range info.OnShutdown {
		fn(ctx)
	}

	// e. 关闭 Tracer Provider，确保缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down tracer provider: %v", err)
	}

	log.Printf("Service %s gracefully shut down.", info.ServiceName)
}

// getOutboundIP 获取本机对外 IP，用于服务注册。
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
