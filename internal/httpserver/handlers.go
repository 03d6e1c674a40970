package httpserver

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/convert"
	"github.com/router-for-me/aigateway/internal/gateway"
	"github.com/router-for-me/aigateway/internal/promptlog"
	"github.com/router-for-me/aigateway/internal/registry"
	"github.com/router-for-me/aigateway/internal/systemprompt"
)

// handlers bundles everything a request needs beyond what gin.Context
// already carries: the configured default provider, the pool-backed
// adapter registry, and the optional system-prompt/prompt-log sidecars.
type handlers struct {
	cfg      config.Config
	registry *gateway.Registry
	prompt   *systemprompt.Manager
	promptLg *promptlog.Logger
	log      *logrus.Entry
}

// resolveProvider returns the provider override named by the :provider
// path segment, or the configured default when the request hit an
// unprefixed route.
func (h *handlers) resolveProvider(c *gin.Context) common.Provider {
	if p := c.Param("provider"); p != "" {
		return common.Provider(p)
	}
	return common.Provider(h.cfg.ModelProvider)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"provider":  h.cfg.ModelProvider,
	})
}

// generateParams carries the bits that differ between the OpenAI/Claude
// routes (model lives in the JSON body) and the Gemini route (model and
// streaming-vs-not are both encoded in the URL).
type generateParams struct {
	clientProto   common.Protocol
	defaultModel  string
	modelOverride string
	forceStream   bool
}

// serveGenerate is the shared body of every generate/chat/messages handler:
// read the body, inject the system prompt, convert into the adapter's
// native protocol if needed, call the adapter (streaming or not), and
// convert the response back, per spec.md §4.6's eight-step request flow.
func (h *handlers) serveGenerate(c *gin.Context, p generateParams) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "could not read request body"}})
		return
	}

	if h.prompt != nil {
		if err := h.prompt.SaveIncoming(promptlog.ExtractPromptFromRequest(body, p.clientProto)); err != nil {
			h.log.WithError(err).Warn("failed to save incoming system prompt")
		}
		body, err = h.prompt.Apply(body, p.clientProto)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "system prompt injection failed"}})
			return
		}
	}
	if h.promptLg != nil {
		h.promptLg.LogInput(promptlog.ExtractPromptFromRequest(body, p.clientProto))
	}

	model := p.modelOverride
	if model == "" {
		model = gjson.GetBytes(body, "model").String()
	}

	providerTag := h.resolveProvider(c)
	if c.Param("provider") == "" {
		if normalized, providerID := registry.ParseProviderPrefixedModelID(model); providerID != "" {
			if tag, ok := registry.ResolveProviderTag(providerID); ok && h.registry.Has(tag) {
				providerTag = tag
				model = normalized
			}
		}
	}

	adapter, entry, err := h.registry.Select(providerTag)
	if err != nil {
		writeErr(c, err)
		return
	}

	if model == "" {
		model = p.defaultModel
	}

	nativeProto := providerTag.NativeProtocol()
	upstreamBody := body
	if p.clientProto != nativeProto {
		upstreamBody, err = convert.ConvertRequest(body, p.clientProto, nativeProto)
		if err != nil {
			writeErr(c, err)
			return
		}
	}

	stream := p.forceStream || gjson.GetBytes(body, "stream").Bool()

	ctx := c.Request.Context()
	if stream {
		events, err := adapter.StreamContent(ctx, model, upstreamBody)
		if err != nil {
			h.registry.Pools.RecordError(providerTag, entry.UUID)
			writeErr(c, err)
			return
		}
		h.registry.Pools.RecordSuccess(providerTag, entry.UUID)
		writeSSE(c.Writer, events, nativeProto, p.clientProto, model)
		return
	}

	respBody, err := adapter.GenerateContent(ctx, model, upstreamBody)
	if err != nil {
		h.registry.Pools.RecordError(providerTag, entry.UUID)
		writeErr(c, err)
		return
	}
	h.registry.Pools.RecordSuccess(providerTag, entry.UUID)

	if p.clientProto != nativeProto {
		respBody, err = convert.ConvertResponse(respBody, nativeProto, p.clientProto)
		if err != nil {
			writeErr(c, err)
			return
		}
	}
	if h.promptLg != nil {
		h.promptLg.LogOutput(promptlog.ExtractTextFromResponse(respBody, p.clientProto))
	}

	c.Data(http.StatusOK, "application/json", respBody)
}

func (h *handlers) openAIChat(c *gin.Context) {
	h.serveGenerate(c, generateParams{clientProto: common.ProtocolOpenAI, defaultModel: "gpt-4o"})
}

func (h *handlers) claudeMessages(c *gin.Context) {
	h.serveGenerate(c, generateParams{clientProto: common.ProtocolClaude, defaultModel: "claude-3-5-sonnet-20241022"})
}

// geminiContent handles POST /v1beta/models/{model}:{action}; model and
// action arrive concatenated in a single path segment, per Gemini's wire
// convention.
func (h *handlers) geminiContent(c *gin.Context) {
	model, action := splitModelAction(c.Param("model"))
	h.serveGenerate(c, generateParams{
		clientProto:   common.ProtocolGemini,
		modelOverride: model,
		forceStream:   action == "streamGenerateContent",
	})
}

func splitModelAction(modelAction string) (model, action string) {
	idx := strings.LastIndex(modelAction, ":")
	if idx < 0 {
		return modelAction, ""
	}
	return modelAction[:idx], modelAction[idx+1:]
}

func (h *handlers) modelList(clientProto common.Protocol) gin.HandlerFunc {
	return func(c *gin.Context) {
		providerTag := h.resolveProvider(c)
		adapter, entry, err := h.registry.Select(providerTag)
		if err != nil {
			writeErr(c, err)
			return
		}
		raw, err := adapter.ListModels(c.Request.Context())
		if err != nil {
			h.registry.Pools.RecordError(providerTag, entry.UUID)
			writeErr(c, err)
			return
		}
		h.registry.Pools.RecordSuccess(providerTag, entry.UUID)

		nativeProto := providerTag.NativeProtocol()
		if clientProto != nativeProto {
			raw, err = convert.ConvertModelList(raw, nativeProto, clientProto)
			if err != nil {
				writeErr(c, err)
				return
			}
		}
		c.Data(http.StatusOK, "application/json", raw)
	}
}

func writeErr(c *gin.Context, err error) {
	ce, ok := err.(*common.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}
	c.JSON(ce.HTTPStatus(), gin.H{"error": gin.H{"message": ce.Message}})
}
