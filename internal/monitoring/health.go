package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"idmail/backend/internal/storage"
)

// HealthStatus 健康状态。
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport 健康报告。
type HealthReport struct {
	Status   HealthStatus `json:"status"`
	Uptime   string       `json:"uptime"`
	Database string       `json:"database"`
	Checked  time.Time    `json:"checked"`
}

// HealthChecker 健康检查器。
type HealthChecker struct {
	store     storage.Store
	log       *zap.Logger
	startTime time.Time
}

// NewHealthChecker 创建健康检查器。
func NewHealthChecker(store storage.Store, log *zap.Logger) *HealthChecker {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthChecker{store: store, log: log, startTime: time.Now()}
}

// Check 执行一次健康检查。数据库不可达即 unhealthy。
func (hc *HealthChecker) Check(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:   HealthStatusHealthy,
		Uptime:   time.Since(hc.startTime).Round(time.Second).String(),
		Database: "ok",
		Checked:  time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := hc.store.Health(ctx); err != nil {
		hc.log.Error("database health check failed", zap.Error(err))
		report.Status = HealthStatusUnhealthy
		report.Database = err.Error()
	}
	return report
}
