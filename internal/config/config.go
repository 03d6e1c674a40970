// Package config loads the gateway's configuration from a tolerant JSON file,
// a sibling .env overlay, and CLI flags, in that precedence order (CLI wins).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// PoolEntry is one credential instance within a provider's pool.
// Field names follow spec.md §6's pool-entry shape.
type PoolEntry struct {
	UUID            string         `json:"uuid" yaml:"uuid"`
	Credentials     map[string]any `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	CheckModelName  string         `json:"check_model_name,omitempty" yaml:"check_model_name,omitempty"`
	IsHealthy       bool           `json:"is_healthy" yaml:"is_healthy"`
	LastUsed        string         `json:"last_used,omitempty" yaml:"last_used,omitempty"`
	UsageCount      int            `json:"usage_count" yaml:"usage_count"`
	ErrorCount      int            `json:"error_count" yaml:"error_count"`
	LastErrorTime   string         `json:"last_error_time,omitempty" yaml:"last_error_time,omitempty"`
}

// Config carries every option from spec.md §6, each with its documented
// default. All fields are optional in the on-disk file.
type Config struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	RequiredAPIKey  string `json:"required_api_key"`
	ModelProvider   string `json:"model_provider"`

	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIBaseURL  string `json:"openai_base_url"`
	ClaudeAPIKey   string `json:"claude_api_key"`
	ClaudeBaseURL  string `json:"claude_base_url"`

	GeminiOAuthCredsBase64   string `json:"gemini_oauth_creds_base64"`
	GeminiOAuthCredsFilePath string `json:"gemini_oauth_creds_file_path"`
	ProjectID                string `json:"project_id"`

	KiroOAuthCredsBase64   string `json:"kiro_oauth_creds_base64"`
	KiroOAuthCredsFilePath string `json:"kiro_oauth_creds_file_path"`

	QwenOAuthCredsFilePath string `json:"qwen_oauth_creds_file_path"`

	SystemPromptFilePath string `json:"system_prompt_file_path"`
	SystemPromptMode     string `json:"system_prompt_mode"`

	PromptLogMode     string `json:"prompt_log_mode"`
	PromptLogBaseName string `json:"prompt_log_base_name"`

	RequestMaxRetries int `json:"request_max_retries"`
	RequestBaseDelay  int `json:"request_base_delay"`

	CronNearMinutes  int  `json:"cron_near_minutes"`
	CronRefreshToken bool `json:"cron_refresh_token"`

	// PoolErrorThreshold auto-marks a pool entry unhealthy once its
	// error_count crosses this value (SPEC_FULL.md §4 feature completion).
	PoolErrorThreshold int `json:"pool_error_threshold"`

	ProviderPoolsFilePath string                 `json:"provider_pools_file_path"`
	ProviderPools         map[string][]PoolEntry `json:"provider_pools"`

	// KnownProviders is the deduped, sorted list of provider tags present in
	// ProviderPools, computed by normalizeProviders. Not part of the on-disk
	// config shape; consumed by cmd/aigateway/tui.go to list known providers
	// even before any pool entry has been dialed.
	KnownProviders []string `json:"-"`
}

// Default returns the configuration with every default from spec.md §6.
func Default() Config {
	return Config{
		Host:                 "localhost",
		Port:                 3000,
		RequiredAPIKey:       "123456",
		ModelProvider:        "gemini-cli-oauth",
		SystemPromptFilePath: "input_system_prompt.txt",
		SystemPromptMode:     "overwrite",
		PromptLogMode:        "none",
		PromptLogBaseName:    "prompt_log",
		RequestMaxRetries:    3,
		RequestBaseDelay:     1000,
		CronNearMinutes:      15,
		CronRefreshToken:     true,
		PoolErrorThreshold:   3,
	}
}

// Load reads configPath (tolerant JSON via hujson, falling back to YAML when
// the extension is .yaml/.yml), overlays a sibling ".env" if present, then
// layers argv flags on top. CLI always wins over file.
func Load(configPath string, argv []string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return cfg, fmt.Errorf("loading .env: %w", err)
		}
	}

	if configPath == "" {
		configPath = "config.json"
	}
	if raw, err := os.ReadFile(configPath); err == nil {
		if err := unmarshalTolerant(configPath, raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", configPath, err)
	}

	flags, err := ParseCLIArgs(argv)
	if err != nil {
		return cfg, err
	}
	MergeCLIArgs(&cfg, flags)

	normalizeProviders(&cfg)
	return cfg, nil
}

func unmarshalTolerant(path string, raw []byte, cfg *Config) error {
	if isYAMLPath(path) {
		return yaml.Unmarshal(raw, cfg)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(std, cfg)
}

func isYAMLPath(path string) bool {
	for _, ext := range []string{".yaml", ".yml"} {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// normalizeProviders dedupes and sorts the provider tags present in
// ProviderPools into cfg.KnownProviders, mirroring the Rust original's
// normalize_providers (kept for config-shape fidelity per SPEC_FULL.md §4).
func normalizeProviders(cfg *Config) {
	if cfg.ProviderPools == nil {
		return
	}
	seen := make(map[string]bool, len(cfg.ProviderPools))
	keys := make([]string, 0, len(cfg.ProviderPools))
	for k := range cfg.ProviderPools {
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cfg.KnownProviders = keys
}

// parsePort is a small helper shared by the CLI parser.
func parsePort(s string) (int, error) {
	return strconv.Atoi(s)
}
