// Package claude implements the native Anthropic Messages adapter. Grounded
// on _examples/original_source/rust/src/providers/claude.rs: POST to
// {base_url}/v1/messages, x-api-key + anthropic-version headers, SSE blocks
// separated by "\n\n" with no [DONE] sentinel.
package claude

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/transport"
	"github.com/sirupsen/logrus"
)

const anthropicVersion = "2023-06-01"

type Adapter struct {
	BaseURL     string
	APIKey      string
	Client      *http.Client
	RetryPolicy provider.RetryPolicy
	Log         *logrus.Entry
}

func New(baseURL, apiKey string, requestTimeout time.Duration, retries provider.RetryPolicy, log *logrus.Entry) *Adapter {
	return &Adapter{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Client:      transport.NewClient(transport.Options{RequestTimeout: requestTimeout}),
		RetryPolicy: retries,
		Log:         log,
	}
}

func (a *Adapter) endpoint() string { return a.BaseURL + "/v1/messages" }

func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (a *Adapter) GenerateContent(ctx context.Context, model string, requestBody []byte) ([]byte, error) {
	return provider.CallWithRetry(ctx, a.RetryPolicy, nil, func(ctx context.Context) (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(requestBody))
		if err != nil {
			return 0, nil, err
		}
		a.setHeaders(req)
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

func (a *Adapter) StreamContent(ctx context.Context, model string, requestBody []byte) (<-chan provider.StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(requestBody))
	if err != nil {
		return nil, err
	}
	a.setHeaders(req)

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
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var block strings.Builder
		flush := func() bool {
			text := block.String()
			block.Reset()
			for _, line := range strings.Split(text, "\n") {
				if data, ok := strings.CutPrefix(line, "data: "); ok {
					select {
					case out <- provider.StreamEvent{Data: []byte(data)}:
					case <-ctx.Done():
						return false
					}
				}
			}
			return true
		}
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if block.Len() > 0 {
					if !flush() {
						return
					}
				}
				continue
			}
			block.WriteString(line)
			block.WriteByte('\n')
		}
		if block.Len() > 0 {
			flush()
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- provider.StreamEvent{Err: common.Transport(err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (a *Adapter) ListModels(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	a.setHeaders(req)
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

func (a *Adapter) RefreshToken(ctx context.Context) error { return nil }
