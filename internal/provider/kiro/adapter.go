package kiro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/transport"
	"github.com/sirupsen/logrus"
)

const defaultRegion = "us-east-1"

// Adapter implements provider.Adapter against AWS CodeWhisperer, accepting
// and returning Claude-schema payloads while speaking conversationState
// underneath.
type Adapter struct {
	Store       *credstore.Store
	Client      *http.Client
	RetryPolicy provider.RetryPolicy
	Log         *logrus.Entry
}

func New(store *credstore.Store, requestTimeout time.Duration, retries provider.RetryPolicy, log *logrus.Entry) *Adapter {
	return &Adapter{
		Store:       store,
		Client:      transport.NewClient(transport.Options{RequestTimeout: requestTimeout}),
		RetryPolicy: retries,
		Log:         log,
	}
}

// region extracts the 4th ':'-segment of the credential's profileArn
// (e.g. "arn:aws:codewhisperer:us-east-1:...") per spec.md §4.4, falling
// back to defaultRegion.
func (a *Adapter) region() string {
	arn, _ := a.Store.Current().Extra["profileArn"].(string)
	parts := strings.Split(arn, ":")
	if len(parts) >= 4 && parts[3] != "" {
		return parts[3]
	}
	return defaultRegion
}

func (a *Adapter) endpoint() string {
	return fmt.Sprintf("https://codewhisperer.%s.amazonaws.com/generateAssistantResponse", a.region())
}

func (a *Adapter) profileArn() string {
	arn, _ := a.Store.Current().Extra["profileArn"].(string)
	return arn
}

// callUpstream issues one conversationState POST and returns the raw
// response body, applying the common retry/403-refresh policy.
func (a *Adapter) callUpstream(ctx context.Context, body []byte) ([]byte, error) {
	return provider.CallWithRetry(ctx, a.RetryPolicy, a.Store.Refresh, func(ctx context.Context) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(body))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if err := a.Store.EnsureFresh(ctx); err != nil {
			return 0, nil, common.AuthFailed("kiro credential refresh failed", err)
		}
		req.Header.Set("Authorization", "Bearer "+a.Store.Current().AccessToken)

		resp, err := a.Client.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, nil, err
		}
		return resp.StatusCode, respBody, nil
	})
}

// GenerateContent accepts a Claude /v1/messages request body, translates it
// to conversationState, parses the CodeWhisperer event-stream response, and
// renders a Claude-schema response.
func (a *Adapter) GenerateContent(ctx context.Context, model string, requestBody []byte) ([]byte, error) {
	cwBody, err := BuildConversationState(requestBody, a.profileArn())
	if err != nil {
		return nil, common.BadRequest("malformed Claude request")
	}

	raw, err := a.callUpstream(ctx, cwBody)
	if err != nil {
		return nil, err
	}

	parsed := ParseEventStream(string(raw))
	return RenderClaudeResponse(parsed, model)
}

// StreamContent synthesises a Claude SSE stream from CodeWhisperer's
// non-streaming response, per spec.md §4.4's "Streaming synthesis".
func (a *Adapter) StreamContent(ctx context.Context, model string, requestBody []byte) (<-chan provider.StreamEvent, error) {
	claudeResp, err := a.GenerateContent(ctx, model, requestBody)
	if err != nil {
		return nil, err
	}
	events, err := SynthesizeSSE(claudeResp)
	if err != nil {
		return nil, err
	}

	out := make(chan provider.StreamEvent, len(events))
	for _, ev := range events {
		out <- provider.StreamEvent{Data: ev.Body}
	}
	close(out)
	return out, nil
}

// ListModels serves the fixed Claude-model list Kiro accepts; CodeWhisperer
// itself exposes no models endpoint.
func (a *Adapter) ListModels(ctx context.Context) ([]byte, error) {
	now := time.Now().Unix()
	models := make([]map[string]any, 0, len(AvailableModels))
	for _, id := range AvailableModels {
		models = append(models, map[string]any{
			"id":       id,
			"name":     id,
			"object":   "model",
			"created":  now,
			"owned_by": "anthropic",
		})
	}
	body, err := json.Marshal(map[string]any{"object": "list", "data": models})
	return body, err
}

// AvailableModels mirrors the Claude model identifiers CLAUDE_MODELS lists
// in the teacher's Rust source.
var AvailableModels = []string{
	"claude-sonnet-4-20250514",
	"claude-sonnet-4-5-20250929",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"amazonq-claude-sonnet-4-20250514",
	"amazonq-claude-sonnet-4-5-20250929",
	"amazonq-claude-3-7-sonnet-20250219",
}

func (a *Adapter) RefreshToken(ctx context.Context) error {
	return a.Store.Refresh(ctx)
}

// NewRefreshFunc adapts Kiro's token refresh to credstore.RefreshFunc,
// selecting the refresh URL by auth method per spec.md §4.4's "Token
// refresh" rule.
func NewRefreshFunc(client *http.Client) credstore.RefreshFunc {
	return func(ctx context.Context, current credstore.Record) (credstore.Record, error) {
		if current.RefreshToken == "" {
			return current, common.AuthFailed("no kiro refresh token available", nil)
		}
		arn, _ := current.Extra["profileArn"].(string)
		region := defaultRegion
		if parts := strings.Split(arn, ":"); len(parts) >= 4 && parts[3] != "" {
			region = parts[3]
		}
		authMethod, _ := current.Extra["authMethod"].(string)

		var refreshURL string
		body := map[string]any{"refreshToken": current.RefreshToken}
		if authMethod == "social" {
			refreshURL = fmt.Sprintf("https://prod.%s.auth.desktop.kiro.dev/refreshToken", region)
		} else {
			refreshURL = fmt.Sprintf("https://oidc.%s.amazonaws.com/token", region)
			body["grantType"] = "refresh_token"
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return current, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, refreshURL, bytes.NewReader(payload))
		if err != nil {
			return current, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return current, common.Transport(err)
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return current, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return current, common.AuthFailed("kiro token refresh failed", common.Upstream(resp.StatusCode, string(respBody)))
		}

		var parsed struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
			ExpiresIn    int64  `json:"expiresIn"`
			ProfileArn   string `json:"profileArn"`
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return current, err
		}

		updated := current
		if parsed.AccessToken != "" {
			updated.AccessToken = parsed.AccessToken
		}
		if parsed.RefreshToken != "" {
			updated.RefreshToken = parsed.RefreshToken
		}
		if parsed.ExpiresIn > 0 {
			expiry := time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
			updated.ExpiresAt = &expiry
		}
		if updated.Extra == nil {
			updated.Extra = map[string]any{}
		}
		if parsed.ProfileArn != "" {
			updated.Extra["profileArn"] = parsed.ProfileArn
		}
		return updated, nil
	}
}
