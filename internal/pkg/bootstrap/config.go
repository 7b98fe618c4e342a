// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
)

// Config is the full service configuration. It is loaded from an optional YAML file and then
// overridden by environment variables.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Infra      InfraConfig      `yaml:"infra"`
	Pagination PaginationConfig `yaml:"pagination"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type InfraConfig struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Nacos    NacosConfig    `yaml:"nacos"`
	Jaeger   JaegerConfig   `yaml:"jaeger"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	LogSQL          bool          `yaml:"logSql"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	StatusEventsTopic string   `yaml:"statusEventsTopic"`
}

type NacosConfig struct {
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

type PaginationConfig struct {
	DefaultSize int    `yaml:"defaultSize"`
	MaxSize     int    `yaml:"maxSize"`
	DefaultSort string `yaml:"defaultSort"`
}

type LifecycleConfig struct {
	// CrossModuleTimeout bounds calls from one module's engine into another's. Zero means no bound,
	// which is right for in-process calls.
	CrossModuleTimeout time.Duration `yaml:"crossModuleTimeout"`
	// OrderServiceURL switches the shipment module to a remote order module when set.
	OrderServiceURL string `yaml:"orderServiceURL"`
	// OrderServiceName is looked up in nacos when OrderServiceURL is empty and nacos is configured.
	OrderServiceName string `yaml:"orderServiceName"`
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig returns the configuration loaded last; defaults if nothing was loaded yet.
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	cfg := DefaultConfig()
	return &cfg
}

// DefaultConfig is a working local setup: sqlite on disk, no redis, kafka, nacos or jaeger.
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:      "orderflow",
			Env:       "dev",
			LogLevel:  "info",
			LogFormat: "console",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Infra: InfraConfig{
			Database: DatabaseConfig{
				Driver:          "sqlite",
				DSN:             "file:orderflow.db?_busy_timeout=5000",
				Port:            3306,
				MaxOpenConns:    20,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				AutoMigrate:     true,
			},
			Redis: RedisConfig{
				CacheTTL: 5 * time.Minute,
			},
			Kafka: KafkaConfig{
				StatusEventsTopic: "order-status-changed",
			},
			Nacos: NacosConfig{
				Group: "DEFAULT_GROUP",
			},
			Jaeger: JaegerConfig{
				SampleRatio: 1,
			},
		},
		Pagination: PaginationConfig{
			DefaultSize: 20,
			MaxSize:     100,
			DefaultSort: "createdAt,desc",
		},
	}
}

// Load reads the YAML file at path (missing file is fine), applies env overrides, validates,
// and publishes the result through GetCurrentConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	// the shipped defaults carry a sqlite DSN; switching the driver alone must not keep it
	if db := &cfg.Infra.Database; db.Driver == "mysql" && !isMySQLDSN(db.DSN) {
		db.DSN = db.MySQLDSN()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig.Store(&cfg)
	return &cfg, nil
}

// Defaults turns the configured page size limits and "key,dir" default sort into paging defaults.
// Sortable keys are left to each module.
func (p PaginationConfig) Defaults() pagination.Defaults {
	key, dir, _ := strings.Cut(p.DefaultSort, ",")
	d := pagination.Defaults{
		Size:    p.DefaultSize,
		MaxSize: p.MaxSize,
		SortKey: strings.TrimSpace(key),
		SortDir: pagination.Asc,
	}
	if strings.EqualFold(strings.TrimSpace(dir), string(pagination.Desc)) {
		d.SortDir = pagination.Desc
	}
	return d
}

// MySQLDSN assembles a DSN from the discrete connection fields.
func (d DatabaseConfig) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func isMySQLDSN(dsn string) bool {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, ":memory:") {
		return false
	}
	_, err := mysql.ParseDSN(dsn)
	return err == nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Infra.Database.Driver {
	case "mysql", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("infra.database.driver %q must be mysql or sqlite", c.Infra.Database.Driver))
	}
	if c.Infra.Database.DSN == "" {
		problems = append(problems, "infra.database.dsn is empty")
	}
	if c.Pagination.DefaultSize <= 0 {
		problems = append(problems, "pagination.defaultSize must be positive")
	}
	if c.Pagination.MaxSize < c.Pagination.DefaultSize {
		problems = append(problems, "pagination.maxSize must be >= defaultSize")
	}
	if c.Infra.Jaeger.SampleRatio < 0 || c.Infra.Jaeger.SampleRatio > 1 {
		problems = append(problems, "infra.jaeger.sampleRatio must be within [0,1]")
	}
	if c.Lifecycle.CrossModuleTimeout < 0 {
		problems = append(problems, "lifecycle.crossModuleTimeout must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("LOG_FORMAT", cfg.App.LogFormat)

	db := &cfg.Infra.Database
	db.Driver = getEnv("DB_DRIVER", db.Driver)
	db.DSN = getEnv("DB_DSN", db.DSN)
	db.Host = getEnv("MYSQL_HOST", db.Host)
	db.User = getEnv("MYSQL_USER", db.User)
	db.Password = getEnv("MYSQL_PASSWORD", db.Password)
	db.Name = getEnv("MYSQL_DATABASE", db.Name)

	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Infra.Kafka.Brokers = splitCSV(brokers)
	}
	cfg.Infra.Kafka.StatusEventsTopic = getEnv("KAFKA_STATUS_TOPIC", cfg.Infra.Kafka.StatusEventsTopic)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Lifecycle.OrderServiceURL = getEnv("ORDER_SERVICE_BASE_URL", cfg.Lifecycle.OrderServiceURL)
	cfg.Lifecycle.OrderServiceName = getEnv("ORDER_SERVICE_NAME", cfg.Lifecycle.OrderServiceName)

	ints := []struct {
		key string
		dst *int
	}{
		{"HTTP_PORT", &cfg.Server.Port},
		{"MYSQL_PORT", &db.Port},
		{"REDIS_DB", &cfg.Infra.Redis.DB},
		{"PAGE_DEFAULT_SIZE", &cfg.Pagination.DefaultSize},
		{"PAGE_MAX_SIZE", &cfg.Pagination.MaxSize},
	}
	for _, it := range ints {
		raw := getEnv(it.key, "")
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("env %s: %w", it.key, err)
		}
		*it.dst = v
	}

	if raw := getEnv("CROSS_MODULE_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("env CROSS_MODULE_TIMEOUT: %w", err)
		}
		cfg.Lifecycle.CrossModuleTimeout = d
	}
	return nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
