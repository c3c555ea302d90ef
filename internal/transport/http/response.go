package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 管理 API 的统一响应结构。
// 兼容 API（密码管理器集成）不用这个信封，按外部约定原样返回。
type Response struct {
	Code int    `json:"code"`           // 业务状态码
	Msg  string `json:"msg"`            // 提示信息
	Data any    `json:"data,omitempty"` // 数据载荷
}

// Success 成功响应（200）。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: "成功", Data: data})
}

// Created 创建成功响应（201）。
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Msg: "创建成功", Data: data})
}

// NoContent 操作成功但无数据返回（204）。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest 请求参数错误（400）。
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Msg: msg})
}
