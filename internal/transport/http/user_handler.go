package httptransport

import (
	"github.com/gin-gonic/gin"

	"idmail/backend/internal/middleware"
	"idmail/backend/internal/service"
)

// UserHandler 用户管理接口。
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler 创建用户处理器。
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	Success(c, users)
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Admin    bool   `json:"admin"`
	Active   *bool  `json:"active"`
}

// Create POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	user, err := h.users.Create(c.Request.Context(), middleware.IdentityFrom(c), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Admin:    req.Admin,
		Active:   req.Active == nil || *req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	Created(c, user)
}

type updateUserRequest struct {
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
	Active   bool   `json:"active"`
}

// Update PUT /api/v1/users/:name
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	err := h.users.Update(c.Request.Context(), middleware.IdentityFrom(c), service.UpdateUserInput{
		Username: c.Param("name"),
		Password: req.Password,
		Admin:    req.Admin,
		Active:   req.Active,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

// Delete DELETE /api/v1/users/:name
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("name")); err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePassword POST /api/v1/account/password
// 用户和邮箱身份都可以改自己的密码。
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数格式错误")
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), middleware.IdentityFrom(c),
		req.CurrentPassword, req.NewPassword)
	if err != nil {
		WriteError(c, err)
		return
	}
	NoContent(c)
}
