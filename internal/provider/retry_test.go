package provider

import (
	"context"
	"testing"
	"time"
)

func TestCallWithRetryForced403DoesNotConsumeRetryBudget(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Microsecond}
	refreshCalls := 0
	refresh := func(context.Context) error {
		refreshCalls++
		return nil
	}

	calls := 0
	call := func(context.Context) (int, []byte, error) {
		calls++
		switch calls {
		case 1:
			return 403, nil, nil // forced refresh, must not count against MaxRetries
		case 2, 3:
			return 429, nil, nil // the full MaxRetries=2 budget, unaffected by the 403 detour
		default:
			return 200, []byte("ok"), nil
		}
	}

	body, err := CallWithRetry(context.Background(), policy, refresh, call)
	if err != nil {
		t.Fatalf("CallWithRetry returned error: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body = %q, want ok", body)
	}
	if refreshCalls != 1 {
		t.Fatalf("refreshCalls = %d, want 1", refreshCalls)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 (1 forced-403 + 2 retries + 1 success)", calls)
	}
}

func TestCallWithRetryExhaustsBudgetOnPersistent429(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 1, BaseDelay: time.Microsecond}
	calls := 0
	call := func(context.Context) (int, []byte, error) {
		calls++
		return 429, []byte("rate limited"), nil
	}

	_, err := CallWithRetry(context.Background(), policy, nil, call)
	if err == nil {
		t.Fatal("expected an error once the retry budget is exhausted")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (1 initial + 1 retry for MaxRetries=1)", calls)
	}
}
