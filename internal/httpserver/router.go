package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/gateway"
	"github.com/router-for-me/aigateway/internal/promptlog"
	"github.com/router-for-me/aigateway/internal/systemprompt"
)

// New builds the gin.Engine serving every route named in spec.md §4.6: the
// unauthenticated health check, the bare OpenAI/Claude/Gemini routes bound
// to cfg.ModelProvider, and their /:provider-prefixed overrides for pinning
// a request to a specific provider regardless of the configured default.
func New(cfg config.Config, registry *gateway.Registry, prompt *systemprompt.Manager, promptLg *promptlog.Logger, log *logrus.Entry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), traceID(), requestLogger(log), cors(), compression())

	h := &handlers{cfg: cfg, registry: registry, prompt: prompt, promptLg: promptLg, log: log}

	r.GET("/health", h.health)

	auth := authMiddleware(cfg.RequiredAPIKey)

	registerAPIRoutes(r.Group("/", auth), h)
	registerAPIRoutes(r.Group("/:provider", auth), h)

	return r
}

// registerAPIRoutes binds the OpenAI/Claude/Gemini route table onto g, which
// is either the bare root group or a /:provider-prefixed one.
func registerAPIRoutes(g *gin.RouterGroup, h *handlers) {
	g.POST("/v1/chat/completions", h.openAIChat)
	g.GET("/v1/models", h.modelList(common.ProtocolOpenAI))
	g.POST("/v1/messages", h.claudeMessages)
	g.GET("/v1beta/models", h.modelList(common.ProtocolGemini))
	g.POST("/v1beta/models/:model", h.geminiContent)
}

// cors mirrors the teacher's permissive tower_http::cors::CorsLayer: any
// origin, the common verbs, and any request header.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
