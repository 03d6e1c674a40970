package httpserver

import (
	"io"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/router-for-me/aigateway/internal/common"
)

// authMiddleware implements spec.md §6's inbound auth check, returning 401
// with the exact body spec.md specifies on failure.
func authMiddleware(requiredKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := headerPtr(c, "Authorization")
		apiKey := headerPtr(c, "x-api-key")
		googKey := headerPtr(c, "x-goog-api-key")
		var queryKey *string
		if v, ok := c.GetQuery("key"); ok {
			queryKey = &v
		}

		if !common.IsAuthorized(auth, apiKey, googKey, queryKey, requiredKey) {
			c.AbortWithStatusJSON(401, gin.H{
				"error": gin.H{"message": "Unauthorized: API key is invalid or missing."},
			})
			return
		}
		c.Next()
	}
}

func headerPtr(c *gin.Context, name string) *string {
	v := c.GetHeader(name)
	if v == "" {
		return nil
	}
	return &v
}

// traceID stamps every request with an xid-generated trace identifier,
// echoed back in the X-Request-Id response header.
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := xid.New().String()
		c.Set("trace_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// requestLogger logs one structured line per request at completion.
func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"trace_id": c.GetString("trace_id"),
		}).Info("request handled")
	}
}

// compression negotiates gzip or brotli response encoding per
// Accept-Encoding, wrapping the gin response writer so downstream handlers
// write transparently through the chosen compressor. The wrapper decides
// lazily on the first write whether the response is an SSE stream (by its
// Content-Type) and, if so, passes bytes straight through: compression and
// the handlers' manual per-chunk flush calls don't mix well, and a
// streamed response gains little from compression anyway.
func compression() gin.HandlerFunc {
	return func(c *gin.Context) {
		accept := c.GetHeader("Accept-Encoding")
		var newCompressor func(io.Writer) io.WriteCloser
		var encoding string
		switch {
		case strings.Contains(accept, "br"):
			encoding = "br"
			newCompressor = func(w io.Writer) io.WriteCloser {
				return brotli.NewWriterLevel(w, brotli.DefaultCompression)
			}
		case strings.Contains(accept, "gzip"):
			encoding = "gzip"
			newCompressor = func(w io.Writer) io.WriteCloser {
				gw, _ := gzip.NewWriterLevel(w, gzip.DefaultCompression)
				return gw
			}
		default:
			c.Next()
			return
		}

		cw := &compressWriter{ResponseWriter: c.Writer, newCompressor: newCompressor, encoding: encoding}
		c.Writer = cw
		c.Next()
		cw.Close()
	}
}

// compressWriter defers choosing whether to compress until the first
// Write, once the handler has set a real Content-Type header.
type compressWriter struct {
	gin.ResponseWriter
	newCompressor func(io.Writer) io.WriteCloser
	encoding      string
	compressor    io.WriteCloser
	passthrough   bool
	decided       bool
}

func (c *compressWriter) decide() {
	if c.decided {
		return
	}
	c.decided = true
	if strings.Contains(c.ResponseWriter.Header().Get("Content-Type"), "text/event-stream") {
		c.passthrough = true
		return
	}
	c.Header().Set("Content-Encoding", c.encoding)
	c.Header().Del("Content-Length")
	c.compressor = c.newCompressor(c.ResponseWriter)
}

func (c *compressWriter) Write(data []byte) (int, error) {
	c.decide()
	if c.passthrough {
		return c.ResponseWriter.Write(data)
	}
	return c.compressor.Write(data)
}

func (c *compressWriter) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

func (c *compressWriter) Close() {
	if c.compressor != nil {
		c.compressor.Close()
	}
}

// Flush satisfies http.Flusher, pushing any buffered compressed bytes out
// before flushing the underlying connection.
func (c *compressWriter) Flush() {
	if f, ok := c.compressor.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
	c.ResponseWriter.Flush()
}
