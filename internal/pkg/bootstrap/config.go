// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 让 yaml 里可以写 "30m"、"1m" 这类时长字面量。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std 转回标准库类型。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 是服务的全量配置。
// 来源为 CONFIG_PATH 指定的 yaml 文件，环境变量可覆盖基础设施地址，
// 方便在容器编排里按环境注入。
type Config struct {
	App struct {
		Port           int      `yaml:"port"`
		SweepInterval  Duration `yaml:"sweep_interval"`  // 清扫周期
		PaymentTimeout Duration `yaml:"payment_timeout"` // 支付超时窗口
		SweepWorkers   int      `yaml:"sweep_workers"`
		ExemptRule     string   `yaml:"exempt_rule"` // CEL 豁免规则，空表示不豁免
	} `yaml:"app"`
	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers           []string `yaml:"brokers"`
			NotificationTopic string   `yaml:"notification_topic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint    string  `yaml:"endpoint"`
			SampleRatio float64 `yaml:"sample_ratio"`
		} `yaml:"jaeger"`
		Zookeeper struct {
			Servers  []string `yaml:"servers"`
			LockPath string   `yaml:"lock_path"`
		} `yaml:"zookeeper"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置，必须在 StartService 和 GetCurrentConfig 之前调用。
func Init() {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("FATAL: failed to read config file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: failed to parse config file %s: %v", path, err)
		}
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前配置。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init must be called before GetCurrentConfig")
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Port = 8087
	cfg.App.SweepInterval = Duration(1 * time.Minute)
	cfg.App.PaymentTimeout = Duration(30 * time.Minute)
	cfg.App.SweepWorkers = 4
	cfg.Infra.Kafka.NotificationTopic = "notifications"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Jaeger.SampleRatio = 1.0
	cfg.Infra.Zookeeper.LockPath = "order-sweeper"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
}
