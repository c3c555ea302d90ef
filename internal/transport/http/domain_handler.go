package httptransport

import (
	"github.com/gin-gonic/gin"

	"idmail/backend/internal/middleware"
	"idmail/backend/internal/service"
)

// DomainHandler 域名管理接口。
type DomainHandler struct {
	domains *service.DomainService
}

// NewDomainHandler 创建域名处理器。
func NewDomainHandler(domains *service.DomainService) *DomainHandler {
	return &DomainHandler{domains: domains}
}

// List GET /api/v1/domains
func (h *DomainHandler) List(c *gin.Context) {
	domains, err := h.domains.List(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, domains)
}

// Usable GET /api/v1/domains/usable
// 返回操作者可以在其下创建邮箱/别名的域名。
func (h *DomainHandler) Usable(c *gin.Context) {
	domains, err := h.domains.Usable(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, domains)
}

type createDomainRequest struct {
	Domain   string `json:"domain" binding:"required"`
	Owner    string `json:"owner" binding:"required"`
	CatchAll string `json:"catchAll"`
	Public   bool   `json:"public"`
	Active   *bool  `json:"active"`
}

// Create POST /api/v1/domains
func (h *DomainHandler) Create(c *gin.Context) {
	var req createDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	d, err := h.domains.Create(c.Request.Context(), middleware.IdentityFrom(c), service.CreateDomainInput{
		Domain:   req.Domain,
		Owner:    req.Owner,
		CatchAll: req.CatchAll,
		Public:   req.Public,
		Active:   req.Active == nil || *req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	Created(c, d)
}

type updateDomainRequest struct {
	CatchAll string `json:"catchAll"`
	Public   bool   `json:"public"`
	Active   bool   `json:"active"`
	Owner    string `json:"owner"`
}

// Update PUT /api/v1/domains/:name
func (h *DomainHandler) Update(c *gin.Context) {
	var req updateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	err := h.domains.Update(c.Request.Context(), middleware.IdentityFrom(c), service.UpdateDomainInput{
		Domain:   c.Param("name"),
		CatchAll: req.CatchAll,
		Public:   req.Public,
		Active:   req.Active,
		Owner:    req.Owner,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

// Delete DELETE /api/v1/domains/:name
func (h *DomainHandler) Delete(c *gin.Context) {
	if err := h.domains.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("name")); err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}
