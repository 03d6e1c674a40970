// Package gateway wires the configured provider pools into constructed
// adapters and a pool.Manager, binding cmd/aigateway's configuration layer
// to the provider/credstore/pool packages. Grounded on the teacher's
// create_adapter factory (providers/mod.rs) and pool_manager.rs's
// ProviderPoolManager::new, generalized from the Rust's single-instance
// construction to this gateway's multi-credential pool-entry construction.
package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/router-for-me/aigateway/internal/common"
	"github.com/router-for-me/aigateway/internal/config"
	"github.com/router-for-me/aigateway/internal/credstore"
	"github.com/router-for-me/aigateway/internal/pool"
	"github.com/router-for-me/aigateway/internal/provider"
	"github.com/router-for-me/aigateway/internal/provider/claude"
	"github.com/router-for-me/aigateway/internal/provider/gemini"
	"github.com/router-for-me/aigateway/internal/provider/kiro"
	"github.com/router-for-me/aigateway/internal/provider/openai"
	"github.com/router-for-me/aigateway/internal/provider/qwen"
)

const (
	shortTimeout = 60 * time.Second  // Gemini/Qwen, per spec.md §5
	longTimeout  = 300 * time.Second // Claude/OpenAI/Kiro, per spec.md §5
)

// Registry binds every configured provider to its constructed adapters and
// the pool.Manager selecting among their credential instances.
type Registry struct {
	Pools    *pool.Manager
	adapters map[common.Provider]map[string]provider.Adapter
}

// Select chooses the next healthy pool entry for p and returns its bound
// adapter, recording the selection for health bookkeeping.
func (r *Registry) Select(p common.Provider) (provider.Adapter, *pool.Entry, error) {
	entry, err := r.Pools.Select(p)
	if err != nil {
		return nil, nil, err
	}
	ad, ok := r.adapters[p][entry.UUID]
	if !ok {
		return nil, nil, fmt.Errorf("no adapter bound for %s pool entry %s", p, entry.UUID)
	}
	return ad, entry, nil
}

// Has reports whether p has at least one configured pool entry.
func (r *Registry) Has(p common.Provider) bool {
	return len(r.adapters[p]) > 0
}

// Build constructs every provider named by cfg.ModelProvider and by
// cfg.ProviderPools, returning a Registry ready to serve requests.
func Build(cfg config.Config, log *logrus.Entry) (*Registry, error) {
	retries := provider.RetryPolicy{
		MaxRetries: cfg.RequestMaxRetries,
		BaseDelay:  time.Duration(cfg.RequestBaseDelay) * time.Millisecond,
	}

	reg := &Registry{adapters: map[common.Provider]map[string]provider.Adapter{}}
	pools := map[common.Provider][]*pool.Entry{}

	needed := map[common.Provider]bool{common.Provider(cfg.ModelProvider): true}
	for tag := range cfg.ProviderPools {
		needed[common.Provider(tag)] = true
	}

	for tag := range needed {
		entries, adapters, err := buildProvider(tag, cfg, retries, log)
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", tag, err)
		}
		if len(entries) == 0 {
			continue
		}
		pools[tag] = entries
		reg.adapters[tag] = adapters
	}

	reg.Pools = pool.New(pools, uint32(cfg.PoolErrorThreshold))
	return reg, nil
}

func buildProvider(tag common.Provider, cfg config.Config, retries provider.RetryPolicy, log *logrus.Entry) ([]*pool.Entry, map[string]provider.Adapter, error) {
	switch tag {
	case common.ProviderOpenAI:
		return buildStatic(tag, cfg, func() provider.Adapter {
			base := cfg.OpenAIBaseURL
			if base == "" {
				base = "https://api.openai.com/v1"
			}
			return openai.New(base, func() string { return cfg.OpenAIAPIKey }, nil, longTimeout, retries, log)
		})

	case common.ProviderClaude:
		return buildStatic(tag, cfg, func() provider.Adapter {
			base := cfg.ClaudeBaseURL
			if base == "" {
				base = "https://api.anthropic.com"
			}
			return claude.New(base, cfg.ClaudeAPIKey, longTimeout, retries, log)
		})

	case common.ProviderGeminiOAuth:
		return buildOAuthFromPools(tag, cfg, func(rec credstore.Record, persistPath string) (provider.Adapter, error) {
			store := credstore.New(rec, persistPath, gemini.NewRefreshFunc(http.DefaultClient), gemini.EncodeCredentials, gemini.DecodeCredentials)
			return gemini.New(store, cfg.ProjectID, shortTimeout, retries, log), nil
		}, func() (credstore.Record, error) {
			return credstore.Load(cfg.GeminiOAuthCredsBase64, cfg.GeminiOAuthCredsFilePath, gemini.DecodeCredentials)
		}, cfg.GeminiOAuthCredsFilePath)

	case common.ProviderQwenOAuth:
		return buildOAuthFromPools(tag, cfg, func(rec credstore.Record, persistPath string) (provider.Adapter, error) {
			store := credstore.New(rec, persistPath, qwen.RefreshFunc(), qwen.EncodeCredentials, qwen.DecodeCredentials)
			return qwen.New(store, shortTimeout, retries, log), nil
		}, func() (credstore.Record, error) {
			return credstore.Load("", cfg.QwenOAuthCredsFilePath, qwen.DecodeCredentials)
		}, cfg.QwenOAuthCredsFilePath)

	case common.ProviderClaudeKiro:
		return buildOAuthFromPools(tag, cfg, func(rec credstore.Record, persistPath string) (provider.Adapter, error) {
			store := credstore.New(rec, persistPath, kiro.NewRefreshFunc(http.DefaultClient), kiro.EncodeCredentials, kiro.DecodeCredentials)
			return kiro.New(store, longTimeout, retries, log), nil
		}, func() (credstore.Record, error) {
			return credstore.Load(cfg.KiroOAuthCredsBase64, cfg.KiroOAuthCredsFilePath, kiro.DecodeCredentials)
		}, cfg.KiroOAuthCredsFilePath)

	default:
		return nil, nil, nil
	}
}

// buildStatic builds the single default pool entry for providers that
// authenticate with a flat API key rather than a rotating OAuth credential.
func buildStatic(tag common.Provider, cfg config.Config, newAdapter func() provider.Adapter) ([]*pool.Entry, map[string]provider.Adapter, error) {
	entry := &pool.Entry{UUID: "default", IsHealthy: true}
	return []*pool.Entry{entry}, map[string]provider.Adapter{entry.UUID: newAdapter()}, nil
}

// buildOAuthFromPools builds one credstore.Store + adapter per configured
// pool entry for tag, falling back to a single "default" entry sourced from
// the provider's top-level credential path when no pool is configured.
func buildOAuthFromPools(
	tag common.Provider,
	cfg config.Config,
	newAdapter func(rec credstore.Record, persistPath string) (provider.Adapter, error),
	loadDefault func() (credstore.Record, error),
	defaultPersistPath string,
) ([]*pool.Entry, map[string]provider.Adapter, error) {
	entries := []*pool.Entry{}
	adapters := map[string]provider.Adapter{}

	poolEntries := cfg.ProviderPools[string(tag)]
	if len(poolEntries) == 0 {
		rec, err := loadDefault()
		if err != nil {
			return nil, nil, nil
		}
		ad, err := newAdapter(rec, defaultPersistPath)
		if err != nil {
			return nil, nil, err
		}
		entry := &pool.Entry{UUID: "default", IsHealthy: true}
		return []*pool.Entry{entry}, map[string]provider.Adapter{entry.UUID: ad}, nil
	}

	for _, pe := range poolEntries {
		rec, err := recordFromPoolEntry(pe)
		if err != nil {
			return nil, nil, fmt.Errorf("pool entry %s: %w", pe.UUID, err)
		}
		ad, err := newAdapter(rec, cfg.ProviderPoolsFilePath)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, &pool.Entry{
			UUID:       pe.UUID,
			IsHealthy:  pe.IsHealthy,
			UsageCount: uint64(pe.UsageCount),
			ErrorCount: uint32(pe.ErrorCount),
		})
		adapters[pe.UUID] = ad
	}
	return entries, adapters, nil
}

func recordFromPoolEntry(pe config.PoolEntry) (credstore.Record, error) {
	rec := credstore.Record{Extra: map[string]any{}}
	if v, ok := pe.Credentials["access_token"].(string); ok {
		rec.AccessToken = v
	}
	if v, ok := pe.Credentials["accessToken"].(string); ok {
		rec.AccessToken = v
	}
	if v, ok := pe.Credentials["refresh_token"].(string); ok {
		rec.RefreshToken = v
	}
	if v, ok := pe.Credentials["refreshToken"].(string); ok {
		rec.RefreshToken = v
	}
	for k, v := range pe.Credentials {
		rec.Extra[k] = v
	}
	return rec, nil
}
