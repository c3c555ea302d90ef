package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/config"
	"idmail/backend/internal/logger"
	"idmail/backend/internal/middleware"
	"idmail/backend/internal/monitoring"
	"idmail/backend/internal/provision"
	"idmail/backend/internal/service"
	"idmail/backend/internal/storage/sqlite"
	httptransport "idmail/backend/internal/transport/http"
)

// main 启动邮件别名管理后端：先调和声明式配置，再起 HTTP API。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting idmail backend",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("database", cfg.Database.Path),
	)

	// 初始化存储层
	store, err := sqlite.NewStore(sqlite.Options{
		Path:         cfg.Database.Path,
		BusyTimeout:  cfg.Database.BusyTimeout,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()
	healthChecker := monitoring.NewHealthChecker(store, log)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelStartup()

	// 调和声明式期望状态（配置为空则跳过）
	if cfg.Provision != "" {
		reconciler := provision.NewReconciler(store, log)
		start := time.Now()
		err := reconciler.RunFromFile(startupCtx, cfg.Provision)
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReconcileRuns.WithLabelValues("error").Inc()
			log.Fatal("provisioning reconciliation failed",
				zap.String("file", cfg.Provision), zap.Error(err))
		}
		metrics.ReconcileRuns.WithLabelValues("ok").Inc()
		log.Info("provisioning reconciliation complete", zap.String("file", cfg.Provision))
	}

	// 引导守卫：保证至少有一个可登录的管理员。
	// 必须在调和之后执行。
	bootstrap, err := auth.EnsureAdmin(startupCtx, store, log)
	if err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}
	if bootstrap != nil && bootstrap.Password != "" {
		// 明文初始密码只在这里输出一次，不进日志文件
		fmt.Printf("created admin user %q with password %q\n", bootstrap.Username, bootstrap.Password)
	}

	// 初始化服务层
	authService := auth.NewService(store, log)
	userService := service.NewUserService(store, authService, log)
	domainService := service.NewDomainService(store, log)
	mailboxService := service.NewMailboxService(store, log)
	aliasService := service.NewAliasService(store, authService, log)

	// 创建 HTTP 服务器
	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, log)
	defer limiter.Stop()

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		UserService:    userService,
		DomainService:  domainService,
		MailboxService: mailboxService,
		AliasService:   aliasService,
		AuthService:    authService,
		Metrics:        metrics,
		HealthChecker:  healthChecker,
		RateLimit:      limiter,
		Store:          store,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
