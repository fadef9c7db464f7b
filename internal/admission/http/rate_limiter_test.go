package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(limit int, window time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(ConnectRateLimitMiddleware(limit, window))
	router.POST("/connect", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestConnectRateLimitMiddleware_AllowsUpToLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRateLimitedRouter(3, time.Minute)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connect", nil)
		req.RemoteAddr = "203.0.113.1:1234"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should be allowed", i)
	}
}

func TestConnectRateLimitMiddleware_RejectsOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRateLimitedRouter(2, time.Minute)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/connect", nil)
		req.RemoteAddr = "203.0.113.2:1234"
		router.ServeHTTP(w, req)
		last = w
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestConnectRateLimitMiddleware_PerAddressIsolation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRateLimitedRouter(1, time.Minute)

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodPost, "/connect", nil)
	req1.RemoteAddr = "203.0.113.3:1111"
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/connect", nil)
	req2.RemoteAddr = "203.0.113.4:2222"
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code, "a different address must have its own window")
}

func TestSlidingWindowStore_ResetsAfterWindow(t *testing.T) {
	store := newSlidingWindowStore(1, 10*time.Millisecond)
	now := time.Now()

	ok, _ := store.allow("k", now)
	assert.True(t, ok)

	ok, _ = store.allow("k", now.Add(5*time.Millisecond))
	assert.False(t, ok)

	ok, _ = store.allow("k", now.Add(11*time.Millisecond))
	assert.True(t, ok, "window should have reset")
}
