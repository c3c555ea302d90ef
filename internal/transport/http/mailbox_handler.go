package httptransport

import (
	"github.com/gin-gonic/gin"

	"idmail/backend/internal/middleware"
	"idmail/backend/internal/service"
)

// MailboxHandler 邮箱管理接口。
type MailboxHandler struct {
	mailboxes *service.MailboxService
}

// NewMailboxHandler 创建邮箱处理器。
func NewMailboxHandler(mailboxes *service.MailboxService) *MailboxHandler {
	return &MailboxHandler{mailboxes: mailboxes}
}

// List GET /api/v1/mailboxes
func (h *MailboxHandler) List(c *gin.Context) {
	mailboxes, err := h.mailboxes.List(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, mailboxes)
}

type createMailboxRequest struct {
	LocalPart string `json:"localPart" binding:"required"`
	Domain    string `json:"domain" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Owner     string `json:"owner"`
	Active    *bool  `json:"active"`
}

// Create POST /api/v1/mailboxes
func (h *MailboxHandler) Create(c *gin.Context) {
	var req createMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	mb, err := h.mailboxes.Create(c.Request.Context(), middleware.IdentityFrom(c), service.CreateMailboxInput{
		LocalPart: req.LocalPart,
		Domain:    req.Domain,
		Password:  req.Password,
		Owner:     req.Owner,
		Active:    req.Active == nil || *req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	Created(c, mb)
}

type updateMailboxRequest struct {
	Password string `json:"password"`
	Owner    string `json:"owner"`
	Active   bool   `json:"active"`
}

// Update PUT /api/v1/mailboxes/:address
func (h *MailboxHandler) Update(c *gin.Context) {
	var req updateMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	err := h.mailboxes.Update(c.Request.Context(), middleware.IdentityFrom(c), service.UpdateMailboxInput{
		Address:  c.Param("address"),
		Password: req.Password,
		Owner:    req.Owner,
		Active:   req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

// Delete DELETE /api/v1/mailboxes/:address
func (h *MailboxHandler) Delete(c *gin.Context) {
	if err := h.mailboxes.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("address")); err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

type regenerateTokenResponse struct {
	APIToken string `json:"apiToken"`
}

// RegenerateAPIToken POST /api/v1/account/token
// 邮箱身份换新 API token，明文只在这个响应里出现一次。
func (h *MailboxHandler) RegenerateAPIToken(c *gin.Context) {
	token, err := h.mailboxes.RegenerateAPIToken(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, regenerateTokenResponse{APIToken: token})
}
