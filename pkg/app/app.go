// Package app 负责进程级装配：配置、日志、追踪、监控、存储、调度器与 HTTP 服务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/filehost/pkg/api"
	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/handle"
	"github.com/yeisme/filehost/pkg/internal/jobs"
	"github.com/yeisme/filehost/pkg/internal/service"
	"github.com/yeisme/filehost/pkg/internal/storage"
	"github.com/yeisme/filehost/pkg/log"
	"github.com/yeisme/filehost/pkg/metrics"
	"github.com/yeisme/filehost/pkg/middleware"
	"github.com/yeisme/filehost/pkg/scheduler"
	"github.com/yeisme/filehost/pkg/tracing"
)

type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	services  *service.Services
	scheduler *scheduler.Scheduler
	server    *http.Server
}

// Init 加载配置并初始化日志，CLI 子命令共用.
func Init(configPath string) (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	log.Init()

	return configs.GetConfig(), nil
}

// OpenServices 打开存储资源并构建服务，返回前完成元数据表迁移.
func OpenServices(ctx context.Context, cfg *configs.AppConfig, clock clockwork.Clock) (*storage.Manager, *service.Services, error) {
	manager, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svcs := service.New(manager, cfg, clock)
	if err := svcs.Records.Migrate(ctx); err != nil {
		_ = manager.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return manager, svcs, nil
}

// NewApp 按配置装配完整的 HTTP 服务，任一步骤失败时释放已打开的资源.
func NewApp(configPath string) (*App, error) {
	ctx := context.Background()

	config, err := Init(configPath)
	if err != nil {
		return nil, err
	}

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	clock := clockwork.NewRealClock()

	manager, svcs, err := OpenServices(ctx, config, clock)
	if err != nil {
		_ = tracing.ShutdownTracer(ctx)
		return nil, err
	}

	a := &App{config: config, manager: manager, services: svcs}

	if a.scheduler, err = scheduler.NewScheduler(scheduler.WithClock(clock)); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterReaper(a.scheduler, svcs.Reaper, config.Storage.ReapInterval); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("register reaper: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	a.Engine = NewEngine(config, handle.New(svcs, manager, clock), a.scheduler)

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: config.Server.GetTimeoutDuration(),
	}

	return a, nil
}

// NewEngine 构建带中间件链与全部路由的 gin 引擎.
func NewEngine(config *configs.AppConfig, h *handle.Handlers, sched *scheduler.Scheduler) *gin.Engine {
	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.GzipMiddleware(),
	)

	if config.Metrics.Enabled {
		engine.Use(middleware.PrometheusMiddleware())
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	if sched != nil {
		engine.Use(middleware.SchedulerMiddleware(sched))
	}

	return api.RegisterGroup(engine, h, config)
}

// Run 启动调度器与 HTTP 服务，收到 SIGINT 或 SIGTERM 后优雅退出.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve 运行直到 ctx 结束或服务出错，返回前释放全部资源.
func (a *App) Serve(ctx context.Context) error {
	l := log.Component("app")

	a.scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", a.server.Addr).Str("version", configs.AppVersion).Msg("http server listening")

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		l.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetShutdownTimeout())
		defer cancel()

		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.GetShutdownTimeout())
	defer cancel()

	return errors.Join(err, a.Close(closeCtx))
}

// Close 依次停止调度器、关闭追踪并释放存储资源.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx))

	if a.manager != nil {
		errs = append(errs, a.manager.Close())
	}

	return errors.Join(errs...)
}
