package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/transport"
	"github.com/sirupsen/logrus"
)

// AvailableModels mirrors the fixed Gemini model list the Code Assist
// backend accepts; ListModels serves this statically like the teacher does.
var AvailableModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.5-pro"}

// Adapter implements provider.Adapter against the Gemini Code Assist API.
// Unlike OpenAI/Claude it carries no per-request bearer closure: credentials
// and project-ID discovery live behind Store and projectID/projectMu.
type Adapter struct {
	Store       *credstore.Store
	Client      *http.Client
	RetryPolicy provider.RetryPolicy
	Log         *logrus.Entry

	projectID string
	projectMu sync.Mutex
}

// New builds a Gemini Code Assist adapter. projectID may be empty, in which
// case it is discovered (GCE metadata, then loadCodeAssist/onboardUser) on
// first use.
func New(store *credstore.Store, projectID string, requestTimeout time.Duration, retries provider.RetryPolicy, log *logrus.Entry) *Adapter {
	return &Adapter{
		Store:       store,
		Client:      transport.NewClient(transport.Options{RequestTimeout: requestTimeout}),
		RetryPolicy: retries,
		Log:         log,
		projectID:   projectID,
	}
}

func (a *Adapter) GenerateContent(ctx context.Context, model string, requestBody []byte) ([]byte, error) {
	var body map[string]any
	if err := json.Unmarshal(requestBody, &body); err != nil {
		return nil, err
	}
	resp, err := a.callAPI(ctx, "generateContent", body)
	if err != nil {
		return nil, err
	}
	compliant := map[string]any{
		"candidates":     resp["candidates"],
		"usageMetadata":  resp["usageMetadata"],
		"promptFeedback": resp["promptFeedback"],
	}
	return json.Marshal(compliant)
}

// StreamContent has no true server-streaming path against Code Assist
// today; it issues one GenerateContent call and replays the full response
// as a single chunk, matching the teacher's own stub behavior.
func (a *Adapter) StreamContent(ctx context.Context, model string, requestBody []byte) (<-chan provider.StreamEvent, error) {
	out := make(chan provider.StreamEvent, 1)
	body, err := a.GenerateContent(ctx, model, requestBody)
	if err != nil {
		out <- provider.StreamEvent{Err: err}
	} else {
		out <- provider.StreamEvent{Data: body}
	}
	close(out)
	return out, nil
}

func (a *Adapter) ListModels(ctx context.Context) ([]byte, error) {
	now := time.Now().Unix()
	models := make([]map[string]any, 0, len(AvailableModels))
	for _, id := range AvailableModels {
		models = append(models, map[string]any{
			"id":       "models/" + id,
			"name":     id,
			"object":   "model",
			"created":  now,
			"owned_by": "google",
		})
	}
	return json.Marshal(map[string]any{"object": "list", "data": models})
}

func (a *Adapter) RefreshToken(ctx context.Context) error {
	return a.Store.Refresh(ctx)
}
