package gateway

import (
	"context"
	"testing"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/pool"
	"github.com/router-for-me/aigateway/internal/provider"
)

type stubAdapter struct{}

func (s *stubAdapter) GenerateContent(ctx context.Context, model string, body []byte) ([]byte, error) {
	return []byte("{}"), nil
}

func (s *stubAdapter) StreamContent(ctx context.Context, model string, body []byte) (<-chan provider.StreamEvent, error) {
	ch := make(chan provider.StreamEvent)
	close(ch)
	return ch, nil
}

func (s *stubAdapter) ListModels(ctx context.Context) ([]byte, error) {
	return []byte("{}"), nil
}

func (s *stubAdapter) RefreshToken(ctx context.Context) error { return nil }

func TestRegistrySelectReturnsBoundAdapter(t *testing.T) {
	entry := &pool.Entry{UUID: "default", IsHealthy: true}
	reg := &Registry{
		Pools: pool.New(map[common.Provider][]*pool.Entry{common.ProviderOpenAI: {entry}}, 3),
		adapters: map[common.Provider]map[string]provider.Adapter{
			common.ProviderOpenAI: {"default": &stubAdapter{}},
		},
	}

	ad, got, err := reg.Select(common.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.UUID != "default" {
		t.Fatalf("got entry %q, want default", got.UUID)
	}
	if ad == nil {
		t.Fatal("expected a non-nil adapter")
	}
}

func TestRegistrySelectUnknownProviderErrors(t *testing.T) {
	reg := &Registry{
		Pools:    pool.New(map[common.Provider][]*pool.Entry{}, 3),
		adapters: map[common.Provider]map[string]provider.Adapter{},
	}
	if _, _, err := reg.Select(common.ProviderClaude); err == nil {
		t.Fatal("expected an error selecting an unconfigured provider")
	}
}

func TestRegistryHas(t *testing.T) {
	reg := &Registry{adapters: map[common.Provider]map[string]provider.Adapter{
		common.ProviderOpenAI: {"default": &stubAdapter{}},
	}}
	if !reg.Has(common.ProviderOpenAI) {
		t.Error("expected Has(openai) to be true")
	}
	if reg.Has(common.ProviderClaude) {
		t.Error("expected Has(claude) to be false")
	}
}

func TestRecordFromPoolEntryReadsBothKeyCasings(t *testing.T) {
	pe := config.PoolEntry{
		UUID: "a",
		Credentials: map[string]any{
			"accessToken":   "from-camel",
			"refresh_token": "rt",
		},
	}
	rec, err := recordFromPoolEntry(pe)
	if err != nil {
		t.Fatalf("recordFromPoolEntry: %v", err)
	}
	if rec.RefreshToken != "rt" {
		t.Errorf("RefreshToken = %q, want rt", rec.RefreshToken)
	}
	if rec.AccessToken != "from-camel" {
		t.Errorf("AccessToken = %q, want from-camel", rec.AccessToken)
	}
	if rec.Extra["accessToken"] != "from-camel" {
		t.Error("expected Extra to retain the raw credential map")
	}
}

func TestBuildStaticProducesOneDefaultEntry(t *testing.T) {
	entries, adapters, err := buildStatic(common.ProviderOpenAI, config.Config{}, func() provider.Adapter {
		return &stubAdapter{}
	})
	if err != nil {
		t.Fatalf("buildStatic: %v", err)
	}
	if len(entries) != 1 || entries[0].UUID != "default" {
		t.Fatalf("entries = %+v, want one default entry", entries)
	}
	if _, ok := adapters["default"]; !ok {
		t.Fatal("expected an adapter bound to the default entry")
	}
}

func TestBuildOAuthFromPoolsBuildsOneEntryPerPoolMember(t *testing.T) {
	cfg := config.Config{
		ProviderPools: map[string][]config.PoolEntry{
			string(common.ProviderGeminiOAuth): {
				{UUID: "acct-1", IsHealthy: true, Credentials: map[string]any{"access_token": "a1"}},
				{UUID: "acct-2", IsHealthy: false, Credentials: map[string]any{"access_token": "a2"}},
			},
		},
	}
	entries, adapters, err := buildOAuthFromPools(
		common.ProviderGeminiOAuth, cfg,
		func(rec credstore.Record, persistPath string) (provider.Adapter, error) { return &stubAdapter{}, nil },
		func() (credstore.Record, error) { return credstore.Record{}, nil },
		"",
	)
	if err != nil {
		t.Fatalf("buildOAuthFromPools: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if len(adapters) != 2 {
		t.Fatalf("got %d adapters, want 2", len(adapters))
	}
	if _, ok := adapters["acct-1"]; !ok {
		t.Error("expected an adapter bound to acct-1")
	}
	var foundUnhealthy bool
	for _, e := range entries {
		if e.UUID == "acct-2" && !e.IsHealthy {
			foundUnhealthy = true
		}
	}
	if !foundUnhealthy {
		t.Error("expected acct-2's IsHealthy=false to carry through from config")
	}
}
