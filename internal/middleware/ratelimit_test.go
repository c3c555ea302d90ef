package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, 2, nil)
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Limit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// 突发额度内放行，超额后拒绝
	require.Equal(t, http.StatusOK, do())
	require.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	defer rl.Stop()

	require.True(t, rl.allow("192.0.2.1"))
	require.False(t, rl.allow("192.0.2.1"))
	// 另一个来源有独立的桶
	assert.True(t, rl.allow("192.0.2.2"))
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(5, 10, nil)

	rl.Stop()
	// 重复调用不会 panic
	rl.Stop()

	select {
	case <-rl.stop:
	default:
		t.Fatal("stop channel should be closed")
	}

	// 停掉清理协程后限流本身照常工作
	assert.True(t, rl.allow("192.0.2.3"))
}
