package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// DefaultCompressMinLength is the smallest body worth compressing.
const DefaultCompressMinLength = 1024

// brotliWriter buffers the body until minLength is reached, then switches
// to brotli. Shorter bodies are written unencoded when the handler returns.
type brotliWriter struct {
	gin.ResponseWriter
	br          *brotli.Writer
	quality     int
	minLength   int
	buf         []byte
	passthrough bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	switch {
	case w.br != nil:
		return w.br.Write(data)
	case w.passthrough:
		return w.ResponseWriter.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) < w.minLength {
		return len(data), nil
	}

	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.br = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
	if _, err := w.br.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush commits to the current encoding: a streaming handler that flushes
// before minLength gets an unencoded response.
func (w *brotliWriter) Flush() {
	if w.br != nil {
		_ = w.br.Flush()
	} else if !w.passthrough {
		w.passthrough = true
		if len(w.buf) > 0 {
			_, _ = w.ResponseWriter.Write(w.buf)
			w.buf = nil
		}
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) finish() error {
	if w.br != nil {
		return w.br.Close()
	}
	if len(w.buf) > 0 {
		_, err := w.ResponseWriter.Write(w.buf)
		w.buf = nil
		return err
	}
	return nil
}

// Compress brotli-encodes responses for clients that accept it. Requests
// whose path starts with one of skipPaths pass through untouched.
func Compress(minLength int, skipPaths ...string) gin.HandlerFunc {
	if minLength <= 0 {
		minLength = DefaultCompressMinLength
	}

	return func(c *gin.Context) {
		if !acceptsBrotli(c.Request) || isStreaming(c.Request) || hasPrefix(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        brotli.DefaultCompression,
			minLength:      minLength,
		}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// isStreaming reports SSE and WebSocket requests, which must not be buffered.
func isStreaming(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
