package httptransport

import (
	"github.com/gin-gonic/gin"

	"idmail/backend/internal/middleware"
	"idmail/backend/internal/monitoring"
	"idmail/backend/internal/service"
)

// AliasHandler 别名管理接口。
type AliasHandler struct {
	aliases *service.AliasService
	metrics *monitoring.Metrics
}

// NewAliasHandler 创建别名处理器。metrics 可以为 nil。
func NewAliasHandler(aliases *service.AliasService, metrics *monitoring.Metrics) *AliasHandler {
	return &AliasHandler{aliases: aliases, metrics: metrics}
}

func (h *AliasHandler) countCreated(mode string) {
	if h.metrics != nil {
		h.metrics.AliasesCreated.WithLabelValues(mode).Inc()
	}
}

// List GET /api/v1/aliases
func (h *AliasHandler) List(c *gin.Context) {
	aliases, err := h.aliases.List(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, aliases)
}

type createAliasRequest struct {
	LocalPart string `json:"localPart" binding:"required"`
	Domain    string `json:"domain" binding:"required"`
	Target    string `json:"target" binding:"required"`
	Comment   string `json:"comment"`
	Owner     string `json:"owner"`
	Active    *bool  `json:"active"`
}

// Create POST /api/v1/aliases（Basic 认证分支）
func (h *AliasHandler) Create(c *gin.Context) {
	var req createAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	a, err := h.aliases.Create(c.Request.Context(), middleware.IdentityFrom(c), service.CreateAliasInput{
		LocalPart: req.LocalPart,
		Domain:    req.Domain,
		Target:    req.Target,
		Comment:   req.Comment,
		Owner:     req.Owner,
		Active:    req.Active == nil || *req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	h.countCreated("explicit")
	Created(c, a)
}

type updateAliasRequest struct {
	Target  string `json:"target"`
	Comment string `json:"comment"`
	Active  bool   `json:"active"`
}

// Update PUT /api/v1/aliases/:address
func (h *AliasHandler) Update(c *gin.Context) {
	var req updateAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	err := h.aliases.Update(c.Request.Context(), middleware.IdentityFrom(c), service.UpdateAliasInput{
		Address: c.Param("address"),
		Target:  req.Target,
		Comment: req.Comment,
		Active:  req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

// Delete DELETE /api/v1/aliases/:address
func (h *AliasHandler) Delete(c *gin.Context) {
	if err := h.aliases.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("address")); err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}
