package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/monitoring"
)

// identityKey 上下文里存放身份的键。
const identityKey = "identity"

// Auth 请求认证中间件。管理接口用 HTTP Basic（用户名或邮箱地址
// 加密码），兼容接口用 Bearer API token。每个请求独立认证，
// 不维护任何会话状态。
type Auth struct {
	auth    *auth.Service
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewAuth 创建认证中间件。metrics 可以为 nil。
func NewAuth(authService *auth.Service, metrics *monitoring.Metrics, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{auth: authService, metrics: metrics, log: log}
}

// countLogin 记录一次认证结果。
func (a *Auth) countLogin(result string) {
	if a.metrics != nil {
		a.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

// RequireIdentity 要求 Basic 认证，解析出的身份写入上下文。
func (a *Auth) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="idmail"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		id, err := a.auth.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			a.countLogin("failed")
			a.log.Warn("basic auth rejected",
				zap.String("user", username),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password or invalid user"})
			c.Abort()
			return
		}

		a.countLogin("ok")
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin 在 RequireIdentity 之后使用，拒绝非管理员。
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id == nil || !id.Admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAPIToken 要求 Bearer API token，解析出邮箱身份。
// 兼容接口（密码管理器集成）使用。
func (a *Auth) RequireAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "api token required"})
			c.Abort()
			return
		}

		id, err := a.auth.LookupByAPIToken(c.Request.Context(), token)
		if err != nil {
			a.countLogin("token_failed")
			a.log.Warn("api token rejected", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api token"})
			c.Abort()
			return
		}

		a.countLogin("token_ok")
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom 取出认证中间件写入的身份，没有则返回 nil。
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, ok := v.(*auth.Identity)
	if !ok {
		return nil
	}
	return id
}

// extractBearerToken 从 Authorization header 提取 Bearer token。
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(header)
}
