package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey 上下文里存放请求 ID 的键。
const requestIDKey = "requestID"

// RequestID 给每个请求分配或透传一个请求 ID，写入响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestIDFrom 取出当前请求的 ID。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
