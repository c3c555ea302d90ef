package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/middleware"
	"idmail/backend/internal/monitoring"
	"idmail/backend/internal/service"
)

// zeroUUID 兼容响应里的占位标识。外部客户端只消费 email 字段，
// 其余字段按对方的响应格式填充固定值。
const zeroUUID = "00000000-0000-0000-0000-000000000000"

// compatEpoch 兼容响应里的占位时间戳。
const compatEpoch = "2000-01-01 00:00:00"

// CompatHandler 密码管理器集成接口。模拟 addy.io 与 SimpleLogin
// 两种第三方 API 的请求/响应格式，认证一律走 Bearer API token。
type CompatHandler struct {
	aliases *service.AliasService
	metrics *monitoring.Metrics
}

// NewCompatHandler 创建兼容接口处理器。metrics 可以为 nil。
func NewCompatHandler(aliases *service.AliasService, metrics *monitoring.Metrics) *CompatHandler {
	return &CompatHandler{aliases: aliases, metrics: metrics}
}

func (h *CompatHandler) countCreated(mode string) {
	if h.metrics != nil {
		h.metrics.AliasesCreated.WithLabelValues(mode).Inc()
	}
}

// writeCompatError 兼容接口不用管理 API 的响应信封，
// 按第三方客户端预期返回 {"error": ...}。
func writeCompatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type addyAliasRequest struct {
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// CreateAddyAlias POST /api/v1/aliases（Bearer 认证分支）。
// domain 为空或 "random" 表示随机选域。响应结构按 addy.io 的
// alias 对象补齐字段，统计类字段固定为零值。
func (h *CompatHandler) CreateAddyAlias(c *gin.Context) {
	var req addyAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	address, err := h.aliases.CreateRandom(c.Request.Context(), middleware.IdentityFrom(c), req.Domain, req.Description)
	if err != nil {
		writeCompatError(c, err)
		return
	}
	h.countCreated("addy")

	_, domainName, _ := domain.SplitAddress(address)
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"id":               zeroUUID,
			"user_id":          zeroUUID,
			"aliasable_id":     nil,
			"aliasable_type":   nil,
			"local_part":       zeroUUID,
			"extension":        nil,
			"domain":           domainName,
			"email":            address,
			"active":           true,
			"description":      req.Description,
			"from_name":        nil,
			"emails_forwarded": 0,
			"emails_blocked":   0,
			"emails_replied":   0,
			"emails_sent":      0,
			"recipients":       []any{},
			"last_forwarded":   compatEpoch,
			"last_blocked":     nil,
			"last_replied":     nil,
			"last_sent":        nil,
			"created_at":       compatEpoch,
			"updated_at":       compatEpoch,
			"deleted_at":       nil,
		},
	})
}

type simpleLoginAliasRequest struct {
	Note string `json:"note"`
}

// CreateRandomAlias POST /api/alias/random/new（SimpleLogin 格式）。
// 域固定随机选择，note 作为别名备注保存。
func (h *CompatHandler) CreateRandomAlias(c *gin.Context) {
	var req simpleLoginAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	address, err := h.aliases.CreateRandom(c.Request.Context(), middleware.IdentityFrom(c), "", req.Note)
	if err != nil {
		writeCompatError(c, err)
		return
	}
	h.countCreated("simplelogin")

	c.JSON(http.StatusCreated, gin.H{"alias": address})
}
