// Package qwen wires the generic OpenAI-compatible adapter to Qwen Code's
// OAuth-authenticated endpoint. Grounded on
// _examples/original_source/rust/src/providers/qwen.rs: Qwen speaks the
// OpenAI chat-completions wire format once authenticated, so no separate
// request/response translation is needed, only credential plumbing.
package qwen

import (
	"context"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/provider/openai"
	"github.com/sirupsen/logrus"
)

// APIBase is Qwen Code's OpenAI-compatible endpoint.
const APIBase = "https://api.qwen.aliyun.com/v1"

// AvailableModels mirrors the fixed model list the teacher's Qwen service
// advertises.
var AvailableModels = []string{"qwen3-coder-plus", "qwen3-coder-flash"}

// New builds an openai.Adapter pointed at Qwen, sourcing its bearer token
// from store and refreshing through it on a forced 403 retry.
func New(store *credstore.Store, requestTimeout time.Duration, retries provider.RetryPolicy, log *logrus.Entry) *openai.Adapter {
	return openai.New(
		APIBase,
		func() string { return store.Current().AccessToken },
		store.Refresh,
		requestTimeout,
		retries,
		log,
	)
}

// RefreshFunc is Qwen's credstore.RefreshFunc. The upstream OAuth flow for
// refreshing a Qwen access token is undocumented in the teacher's own
// service (its refresh_access_token is a stub that logs a warning and
// returns the credential unchanged); preserving that limitation rather
// than inventing an endpoint this gateway cannot actually call.
func RefreshFunc() credstore.RefreshFunc {
	return func(ctx context.Context, current credstore.Record) (credstore.Record, error) {
		if current.RefreshToken == "" {
			return current, common.AuthFailed("no qwen refresh token available", nil)
		}
		return current, common.AuthFailed("qwen token refresh is not supported upstream", nil)
	}
}
