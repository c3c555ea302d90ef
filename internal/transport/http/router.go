package httptransport

import (
	"net/http"
	"strings"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/config"
	"idmail/backend/internal/middleware"
	"idmail/backend/internal/monitoring"
	"idmail/backend/internal/service"
	"idmail/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	UserService    *service.UserService
	DomainService  *service.DomainService
	MailboxService *service.MailboxService
	AliasService   *service.AliasService
	AuthService    *auth.Service
	Metrics        *monitoring.Metrics
	HealthChecker  *monitoring.HealthChecker
	// RateLimit 为 nil 时路由器自建一个，生命周期随进程；
	// 调用方想在关停时回收清理协程就自己建好传进来。
	RateLimit *middleware.RateLimiter
	Store     storage.Store
	Logger    *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.GinMiddleware())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	userHandler := NewUserHandler(deps.UserService)
	domainHandler := NewDomainHandler(deps.DomainService)
	mailboxHandler := NewMailboxHandler(deps.MailboxService)
	aliasHandler := NewAliasHandler(deps.AliasService, deps.Metrics)
	compatHandler := NewCompatHandler(deps.AliasService, deps.Metrics)

	// 创建中间件
	authMW := middleware.NewAuth(deps.AuthService, deps.Metrics, log)

	// 每个请求都要做一次 bcrypt 校验或 token 查询，
	// 认证过的路由组统一挂限流。
	limiter := deps.RateLimit
	if limiter == nil {
		limiter = middleware.NewRateLimiter(deps.Config.RateLimit.PerSecond, deps.Config.RateLimit.Burst, log)
	}

	// 健康检查
	router.GET("/healthz", func(c *gin.Context) {
		report := deps.HealthChecker.Check(c.Request.Context())
		status := http.StatusOK
		if report.Status != monitoring.HealthStatusHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", deps.Metrics.Handler())
	}

	// SimpleLogin 格式的兼容接口，路径按对方客户端的约定
	compat := router.Group("/api")
	compat.Use(limiter.Limit())
	{
		compat.POST("/alias/random/new", authMW.RequireAPIToken(), compatHandler.CreateRandomAlias)
	}

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Limit())
	{
		// addy.io 格式的兼容接口与管理端的别名创建共用一条路径，
		// 按 Authorization 方案分流：Basic 走管理端，其余走 Bearer。
		v1.POST("/aliases", dispatchAliasCreate(authMW, aliasHandler, compatHandler))

		authed := v1.Group("")
		authed.Use(authMW.RequireIdentity())
		{
			authed.GET("/users", authMW.RequireAdmin(), userHandler.List)
			authed.POST("/users", authMW.RequireAdmin(), userHandler.Create)
			authed.PUT("/users/:name", authMW.RequireAdmin(), userHandler.Update)
			authed.DELETE("/users/:name", authMW.RequireAdmin(), userHandler.Delete)

			authed.POST("/account/password", userHandler.ChangePassword)
			authed.POST("/account/token", mailboxHandler.RegenerateAPIToken)

			authed.GET("/domains", domainHandler.List)
			authed.GET("/domains/usable", domainHandler.Usable)
			authed.POST("/domains", authMW.RequireAdmin(), domainHandler.Create)
			authed.PUT("/domains/:name", domainHandler.Update)
			authed.DELETE("/domains/:name", domainHandler.Delete)

			authed.GET("/mailboxes", mailboxHandler.List)
			authed.POST("/mailboxes", mailboxHandler.Create)
			authed.PUT("/mailboxes/:address", mailboxHandler.Update)
			authed.DELETE("/mailboxes/:address", mailboxHandler.Delete)

			authed.GET("/aliases", aliasHandler.List)
			authed.PUT("/aliases/:address", aliasHandler.Update)
			authed.DELETE("/aliases/:address", aliasHandler.Delete)
		}
	}

	return router
}

// dispatchAliasCreate 在同一路径上分流两种认证方案。
// 手动调用对应的认证中间件函数，中止即返回。
func dispatchAliasCreate(authMW *middleware.Auth, aliasHandler *AliasHandler, compatHandler *CompatHandler) gin.HandlerFunc {
	requireIdentity := authMW.RequireIdentity()
	requireToken := authMW.RequireAPIToken()

	return func(c *gin.Context) {
		if strings.HasPrefix(c.GetHeader("Authorization"), "Basic ") {
			requireIdentity(c)
			if c.IsAborted() {
				return
			}
			aliasHandler.Create(c)
			return
		}

		requireToken(c)
		if c.IsAborted() {
			return
		}
		compatHandler.CreateAddyAlias(c)
	}
}
