package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// WriteError 把业务错误翻译成 HTTP 状态码与响应。
// 认证失败（401）在中间件层处理，这里的 ErrUnauthorized
// 一律是能力检查未通过，对应 403。
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Msg: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, Response{Code: http.StatusForbidden, Msg: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, Response{Code: http.StatusConflict, Msg: err.Error()})
	case isNotFound(err):
		c.JSON(http.StatusNotFound, Response{Code: http.StatusNotFound, Msg: err.Error()})
	case errors.Is(err, domain.ErrStore):
		c.JSON(http.StatusServiceUnavailable, Response{Code: http.StatusServiceUnavailable, Msg: "存储暂时不可用"})
	default:
		c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Msg: "服务器内部错误"})
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrUserNotFound) ||
		errors.Is(err, storage.ErrDomainNotFound) ||
		errors.Is(err, storage.ErrMailboxNotFound) ||
		errors.Is(err, storage.ErrAliasNotFound) ||
		errors.Is(err, domain.ErrNotFound)
}
