// Package openai implements the OpenAI-compatible adapter (also used for
// Qwen, which is OpenAI-shaped once OAuth-authenticated). Grounded on
// _examples/original_source/rust/src/providers/openai.rs and qwen.rs: POST
// to {base_url}/chat/completions, `data: <json>\n` stream framing
// terminated by a literal `data: [DONE]` line, bearer auth.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/transport"
	"github.com/sirupsen/logrus"
)

// Adapter implements provider.Adapter against any OpenAI Chat Completions
// compatible backend, authenticating with a static bearer token (OpenAI
// proper) or an OAuth access token refreshed out of band (Qwen).
type Adapter struct {
	BaseURL     string
	APIKey      func() string // returns the current bearer token
	Refresh     func(ctx context.Context) error
	Client      *http.Client
	RetryPolicy provider.RetryPolicy
	Log         *logrus.Entry
}

// New builds an Adapter with the connection ceilings spec.md §4.3 mandates.
func New(baseURL string, apiKey func() string, refresh func(context.Context) error, requestTimeout time.Duration, retries provider.RetryPolicy, log *logrus.Entry) *Adapter {
	return &Adapter{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Refresh:     refresh,
		Client:      transport.NewClient(transport.Options{RequestTimeout: requestTimeout}),
		RetryPolicy: retries,
		Log:         log,
	}
}

func (a *Adapter) endpoint() string { return a.BaseURL + "/chat/completions" }

func (a *Adapter) GenerateContent(ctx context.Context, model string, requestBody []byte) ([]byte, error) {
	return provider.CallWithRetry(ctx, a.RetryPolicy, a.oauthRefresh(), func(ctx context.Context) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(requestBody))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.APIKey())

		resp, err := a.Client.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, nil, err
		}
		return resp.StatusCode, body, nil
	})
}

func (a *Adapter) oauthRefresh() func(context.Context) error {
	if a.Refresh == nil {
		return nil
	}
	return a.Refresh
}

func (a *Adapter) StreamContent(ctx context.Context, model string, requestBody []byte) (<-chan provider.StreamEvent, error) {
	var withStream map[string]any
	if err := json.Unmarshal(requestBody, &withStream); err != nil {
		return nil, common.BadRequest("malformed request body")
	}
	withStream["stream"] = true
	body, err := json.Marshal(withStream)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey())

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, common.Transport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, common.Upstream(resp.StatusCode, string(errBody))
	}

	out := make(chan provider.StreamEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if strings.HasPrefix(line, "data: ") {
				payload := strings.TrimPrefix(line, "data: ")
				if payload == "[DONE]" {
					return
				}
				if payload != "" {
					select {
					case out <- provider.StreamEvent{Data: []byte(payload)}:
					case <-ctx.Done():
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					select {
					case out <- provider.StreamEvent{Err: common.Transport(err)}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()
	return out, nil
}

func (a *Adapter) ListModels(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.APIKey())
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, common.Transport(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.Upstream(resp.StatusCode, string(body))
	}
	return body, nil
}

func (a *Adapter) RefreshToken(ctx context.Context) error {
	if a.Refresh == nil {
		return nil
	}
	return a.Refresh(ctx)
}
