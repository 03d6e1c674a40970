package httpserver

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(handler gin.HandlerFunc, middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/x", handler)
	return r
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Status(200) }, authMiddleware("secret"))
	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareAcceptsBearerKey(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Status(200) }, authMiddleware("secret"))
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestTraceIDStampsResponseHeader(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Status(200) }, traceID())
	req := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id to be set")
	}
}

func TestCompressionCompressesJSONResponses(t *testing.T) {
	r := newRouter(func(c *gin.Context) {
		c.JSON(200, gin.H{"hello": "world"})
	}, compression())
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", w.Header().Get("Content-Encoding"))
	}
	gz, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("response body is not valid gzip: %v", err)
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("reading gzip body: %v", err)
	}
	if string(raw) != `{"hello":"world"}` {
		t.Errorf("decompressed body = %q", raw)
	}
}

func TestCompressionPassesThroughSSEResponsesUncompressed(t *testing.T) {
	r := newRouter(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.WriteHeader(200)
		c.Writer.Write([]byte("data: hello\n\n"))
	}, compression())
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("expected no Content-Encoding for an SSE response, got %q", w.Header().Get("Content-Encoding"))
	}
	if w.Body.String() != "data: hello\n\n" {
		t.Errorf("body = %q, want passthrough SSE framing", w.Body.String())
	}
}
