package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Host != "localhost" || cfg.Port != 3000 {
		t.Fatalf("unexpected host/port defaults: %+v", cfg)
	}
	if cfg.RequiredAPIKey != "123456" {
		t.Fatalf("unexpected default api key: %q", cfg.RequiredAPIKey)
	}
	if cfg.ModelProvider != "gemini-cli-oauth" {
		t.Fatalf("unexpected default provider: %q", cfg.ModelProvider)
	}
	if cfg.RequestMaxRetries != 3 || cfg.RequestBaseDelay != 1000 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
}

func TestCLIOverridesWinOverFile(t *testing.T) {
	cfg := Default()
	cfg.Host = "fromfile"
	args, err := ParseCLIArgs([]string{"--host", "fromcli"})
	if err != nil {
		t.Fatal(err)
	}
	MergeCLIArgs(&cfg, args)
	if cfg.Host != "fromcli" {
		t.Fatalf("expected CLI to win, got %q", cfg.Host)
	}
}

func TestExtractConfigPath(t *testing.T) {
	if got := ExtractConfigPath([]string{"--port", "1", "--config", "custom.json"}); got != "custom.json" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeProvidersDedupesAndSortsIntoKnownProviders(t *testing.T) {
	cfg := Default()
	cfg.ProviderPools = map[string][]PoolEntry{
		"qwen-oauth":       nil,
		"claude":           nil,
		"gemini-cli-oauth": nil,
	}
	normalizeProviders(&cfg)
	want := []string{"claude", "gemini-cli-oauth", "qwen-oauth"}
	if len(cfg.KnownProviders) != len(want) {
		t.Fatalf("KnownProviders = %v, want %v", cfg.KnownProviders, want)
	}
	for i, p := range want {
		if cfg.KnownProviders[i] != p {
			t.Fatalf("KnownProviders = %v, want %v", cfg.KnownProviders, want)
		}
	}
}
