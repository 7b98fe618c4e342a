// cmd/orderflow/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/wangyingjie930/orderflow/internal/pkg/bootstrap"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/database"
	"github.com/wangyingjie930/orderflow/internal/pkg/httpclient"
	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
	"github.com/wangyingjie930/orderflow/internal/pkg/metrics"
	"github.com/wangyingjie930/orderflow/internal/pkg/mq"
	"github.com/wangyingjie930/orderflow/internal/pkg/web"
	"github.com/wangyingjie930/orderflow/internal/service/order"
	"github.com/wangyingjie930/orderflow/internal/service/shipment"
	shipmentapp "github.com/wangyingjie930/orderflow/internal/service/shipment/application"
)

const serviceName = "orderflow"

// main 函数是应用的"组装根" (Composition Root)
func main() {
	cfg, err := bootstrap.Load(getEnv("CONFIG_FILE", "configs/config.yaml"))
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(logger.Options{
		Level:   cfg.App.LogLevel,
		Format:  cfg.App.LogFormat,
		Service: cfg.App.Name,
	})
	log := logger.Ctx(context.Background())

	if err := run(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Msg("orderflow exited")
	}
}

func run(ctx context.Context, cfg *bootstrap.Config) error {
	log := logger.Ctx(ctx)
	var cleanup []func(context.Context) error

	// 1. 数据库
	dbCfg := cfg.Infra.Database
	db, err := database.Open(ctx, database.Options{
		Driver:          dbCfg.Driver,
		DSN:             dbCfg.DSN,
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
		LogSQL:          dbCfg.LogSQL,
	})
	if err != nil {
		return err
	}
	cleanup = append(cleanup, func(context.Context) error { return closeDB(db) })
	if dbCfg.AutoMigrate {
		if err := order.AutoMigrate(db); err != nil {
			return err
		}
		if err := shipment.AutoMigrate(db); err != nil {
			return err
		}
	}

	// 2. 可选的缓存和事件通道
	var redisClient *redis.Client
	if cfg.Infra.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Infra.Redis.Addr,
			Password: cfg.Infra.Redis.Password,
			DB:       cfg.Infra.Redis.DB,
		})
		cleanup = append(cleanup, func(context.Context) error { return redisClient.Close() })
		log.Info().Str("addr", cfg.Infra.Redis.Addr).Msg("order cache enabled")
	}
	var eventWriter mq.MessageWriter
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		w := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StatusEventsTopic)
		eventWriter = w
		cleanup = append(cleanup, func(context.Context) error { return w.Close() })
		log.Info().Strs("brokers", cfg.Infra.Kafka.Brokers).Str("topic", cfg.Infra.Kafka.StatusEventsTopic).Msg("order status events enabled")
	}

	// 3. 组装模块
	reg := metrics.New(serviceName)
	clk := clock.NewSystem()
	validator := web.NewValidator()
	paging := cfg.Pagination.Defaults()

	orderDeps := order.Deps{
		DB:          db,
		CacheTTL:    cfg.Infra.Redis.CacheTTL,
		EventWriter: eventWriter,
		Metrics:     reg,
		Clock:       clk,
		Validator:   validator,
		Paging:      paging,
	}
	if redisClient != nil {
		orderDeps.Redis = redisClient
	}
	orders := order.New(orderDeps)

	readiness := map[string]web.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	// 4. 启动
	return bootstrap.StartService(ctx, bootstrap.AppInfo{
		ServiceName: serviceName,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			shipments := shipment.New(shipment.Deps{
				DB:           db,
				Orders:       orderLifecycle(appCtx, orders),
				OrderTimeout: cfg.Lifecycle.CrossModuleTimeout,
				Metrics:      reg,
				Clock:        clk,
				Validator:    validator,
				Paging:       paging,
			})
			orders.RegisterRoutes(appCtx.Mux)
			shipments.RegisterRoutes(appCtx.Mux)
			web.RegisterOps(appCtx.Mux, reg.Gatherer(), readiness)
		},
		Middleware: func(appCtx bootstrap.AppCtx) []func(http.Handler) http.Handler {
			return []func(http.Handler) http.Handler{
				web.RequestID,
				web.Tracing(serviceName, appCtx.Mux),
				web.RequestLogger,
				web.Metrics(reg, appCtx.Mux),
				func(http.Handler) http.Handler { return web.WithRouteFallback(appCtx.Mux, clk) },
			}
		},
		Cleanup: cleanup,
	})
}

// orderLifecycle picks how the shipment module reaches orders: a configured URL, an instance
// discovered through nacos, or the in-process engine.
func orderLifecycle(appCtx bootstrap.AppCtx, orders *order.Module) shipmentapp.OrderLifecycle {
	lc := appCtx.Config.Lifecycle
	log := logger.Ctx(context.Background())
	client := func() *httpclient.Client {
		return httpclient.NewClient(otel.Tracer(serviceName), lc.CrossModuleTimeout)
	}

	switch {
	case lc.OrderServiceURL != "":
		log.Info().Str("url", lc.OrderServiceURL).Msg("shipment module uses the remote order service")
		return shipment.RemoteOrders(lc.OrderServiceURL, client())
	case lc.OrderServiceName != "" && appCtx.Nacos != nil:
		log.Info().Str("service", lc.OrderServiceName).Msg("shipment module discovers the order service through nacos")
		return shipment.DiscoveredOrders(func() (string, error) {
			return appCtx.Nacos.DiscoverServiceInstance(lc.OrderServiceName)
		}, client())
	default:
		return orders.Service
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
