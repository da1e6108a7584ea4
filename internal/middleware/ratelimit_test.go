package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/response"
	"github.com/stemsi/leave-assessment/internal/service"
	"github.com/stretchr/testify/assert"
)

type memCounter struct {
	mu   sync.Mutex
	hits map[string]int64
	keys []string
	err  error
}

func (m *memCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[key]++
	m.keys = append(m.keys, key)
	return m.hits[key], nil
}

func limitedRouter(counter WindowCounter, limit int, claims *service.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ContextKeyClaims, claims)
			c.Next()
		})
	}
	r.Use(NewRateLimiter(counter, "student", limit, time.Minute, zerolog.Nop()).Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	counter := &memCounter{}
	r := limitedRouter(counter, 2, &service.Claims{TokenType: service.TokenTypeStudent, UserID: 42})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Equal(t, response.ErrRateLimitExceeded, errorCode(t, last))
	assert.Equal(t, "ratelimit:student:student:42", counter.keys[0])
}

func TestRateLimiter_KeysByIPWithoutClaims(t *testing.T) {
	counter := &memCounter{}
	r := limitedRouter(counter, 5, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.8:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"ratelimit:student:10.0.0.8"}, counter.keys)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	r := limitedRouter(&memCounter{err: errors.New("redis down")}, 1, nil)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
