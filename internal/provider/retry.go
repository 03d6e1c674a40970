package provider

import (
	"context"
	"time"

	"github.com/router-for-me/aigateway/internal/common"
)

// RetryPolicy is the common backoff spec.md §4.3 describes: on 429 or 5xx,
// sleep base_delay*2^attempt ms and retry up to MaxRetries; a non-429/403
// 4xx is terminal.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// ShouldRetryStatus reports whether status is retryable under the common
// policy (429 or any 5xx).
func ShouldRetryStatus(status int) bool {
	return status == 429 || status >= 500
}

// Backoff sleeps base_delay*2^attempt, honouring ctx cancellation.
func (p RetryPolicy) Backoff(ctx context.Context, attempt int) error {
	delay := p.BaseDelay << attempt
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return common.Cancelled()
	}
}

// CallWithRetry runs call, retrying on retryable statuses up to
// policy.MaxRetries, with a single forced-refresh-and-retry on a first 403
// (oauthRefresh != nil enables this path, per spec.md §4.3). call must
// return the response status, body, and any transport-level error.
func CallWithRetry(ctx context.Context, policy RetryPolicy, oauthRefresh func(context.Context) error, call func(ctx context.Context) (status int, body []byte, err error)) ([]byte, error) {
	forced403Used := false
	for attempt := 0; ; attempt++ {
		status, body, err := call(ctx)
		if err != nil {
			return nil, common.Transport(err)
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		if status == 403 && oauthRefresh != nil && !forced403Used {
			forced403Used = true
			if refreshErr := oauthRefresh(ctx); refreshErr != nil {
				return nil, common.AuthFailed("refresh after 403 failed", refreshErr)
			}
			attempt--
			continue
		}
		if status == 403 {
			return nil, common.AuthFailed("upstream rejected credentials twice", nil)
		}

		if ShouldRetryStatus(status) && attempt < policy.MaxRetries {
			if err := policy.Backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		return nil, common.Upstream(status, redact(body))
	}
}

// redact trims an upstream error body to a bounded, credential-free preview.
func redact(body []byte) string {
	const max = 2048
	if len(body) > max {
		return string(body[:max]) + "...(truncated)"
	}
	return string(body)
}
