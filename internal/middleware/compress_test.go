package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressRouter(body string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Compress(64, "/metrics"))
	r.GET("/data", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, body) })
	return r
}

func TestCompress_EncodesLargeBodies(t *testing.T) {
	body := strings.Repeat("izin siswa ", 50)
	r := compressRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))

	decoded, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

func TestCompress_SmallBodyUnencoded(t *testing.T) {
	r := compressRouter("ok")

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())
}

func TestCompress_Passthrough(t *testing.T) {
	body := strings.Repeat("x", 200)
	r := compressRouter(body)

	cases := map[string]func(*http.Request){
		"no accept-encoding": func(req *http.Request) {},
		"skipped path": func(req *http.Request) {
			req.URL.Path = "/metrics"
			req.Header.Set("Accept-Encoding", "br")
		},
		"event stream": func(req *http.Request) {
			req.Header.Set("Accept-Encoding", "br")
			req.Header.Set("Accept", "text/event-stream")
		},
	}

	for name, prep := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/data", nil)
			prep(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Equal(t, body, w.Body.String())
		})
	}
}
