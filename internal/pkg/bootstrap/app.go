// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wangyingjie930/orderflow/internal/pkg/logger"
	"github.com/wangyingjie930/orderflow/internal/pkg/nacos"
	"github.com/wangyingjie930/orderflow/internal/pkg/tracing"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client
	Config *Config
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Config      *Config
	// RegisterHandlers 允许调用方注册自己的 HTTP 路由
	RegisterHandlers func(appCtx AppCtx)
	// Middleware builds the chain wrapped around the finished mux, outermost first.
	Middleware func(appCtx AppCtx) []func(http.Handler) http.Handler
	// Cleanup runs after the server stopped accepting requests, in reverse order.
	Cleanup []func(ctx context.Context) error
}

// StartService runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// everything down in reverse start order.
func StartService(ctx context.Context, info AppInfo) error {
	cfg := info.Config
	if cfg == nil {
		cfg = GetCurrentConfig()
	}
	log := logger.Ctx(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}

	// 2. 服务注册 (optional)
	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.ServerAddrs != "" {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return fmt.Errorf("init nacos client: %w", err)
		}
		ip, err = outboundIP()
		if err != nil {
			return fmt.Errorf("resolve outbound ip: %w", err)
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.Server.Port); err != nil {
			return err
		}
	}

	// 3. HTTP server
	mux := http.NewServeMux()
	appCtx := AppCtx{Mux: mux, Nacos: namingClient, Config: cfg}
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(appCtx)
	}
	var handler http.Handler = mux
	if info.Middleware != nil {
		chain := info.Middleware(appCtx)
		for i := len(chain) - 1; i >= 0; i-- {
			handler = chain[i](handler)
		}
	}
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("service", info.ServiceName).Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	})

	// 4. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("service", info.ServiceName).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if namingClient != nil {
			if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, cfg.Server.Port); err != nil {
				log.Error().Err(err).Msg("deregister from nacos")
			}
			namingClient.Close()
		}

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		for i := len(info.Cleanup) - 1; i >= 0; i-- {
			if err := info.Cleanup[i](shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		// 最后关闭 Tracer Provider，确保关停过程中的 span 也被发送出去
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	if err != nil {
		log.Error().Err(err).Str("service", info.ServiceName).Msg("service stopped with error")
		return err
	}
	log.Info().Str("service", info.ServiceName).Msg("service gracefully shut down")
	return nil
}

// outboundIP returns the local address the kernel would route external traffic from.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
