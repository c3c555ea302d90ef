package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标。
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 认证指标
	LoginsTotal *prometheus.CounterVec

	// 别名指标
	AliasesCreated *prometheus.CounterVec

	// 调和指标
	ReconcileRuns     *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
}

// NewMetrics 创建并注册全部指标。
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmail_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"},
		),
		AliasesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmail_aliases_created_total",
				Help: "Total number of aliases created",
			},
			[]string{"mode"},
		),
		ReconcileRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idmail_reconcile_runs_total",
				Help: "Total number of reconciliation runs",
			},
			[]string{"result"},
		),
		ReconcileDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "idmail_reconcile_duration_seconds",
				Help:    "Reconciliation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// GinMiddleware 记录每个 HTTP 请求的计数与耗时。
// path 用路由模板而不是原始 URL，避免自然键把标签基数撑爆。
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 返回 /metrics 的 HTTP 处理器。
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
