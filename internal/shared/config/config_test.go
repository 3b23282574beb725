package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsToDeepSeek(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")
	t.Setenv("STATE_STORE", "")
	t.Setenv("STATE_QUOTA_BYTES", "")

	cfg := Load()
	if cfg.LLMProvider != "deepseek" {
		t.Fatalf("expected deepseek provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMBaseURL != "https://api.deepseek.com" {
		t.Fatalf("unexpected base url %q", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "deepseek-chat" {
		t.Fatalf("unexpected model %q", cfg.LLMModel)
	}
	if cfg.LLMAPIKey != "ds-key" {
		t.Fatalf("expected DEEPSEEK_API_KEY fallback, got %q", cfg.LLMAPIKey)
	}
	if cfg.StateStore != "memory" {
		t.Fatalf("expected memory state store, got %q", cfg.StateStore)
	}
	if cfg.StateQuotaBytes != defaultQuotaBytes {
		t.Fatalf("expected default quota, got %d", cfg.StateQuotaBytes)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "STATE_STORE=sqlite\nPORT=9090\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("STATE_STORE", "")
	os.Unsetenv("STATE_STORE")

	cfg := Load()
	if cfg.StateStore != "sqlite" {
		t.Fatalf("expected sqlite from .env, got %q", cfg.StateStore)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env PORT to win, got %q", cfg.Port)
	}
}

func TestNormalizeStateStore(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "PG", want: "postgres"},
		{raw: " file ", want: "local"},
		{raw: "s3", want: "s3"},
		{raw: "sqlite", want: "sqlite"},
		{raw: "bogus", want: "memory"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			if got := normalizeStateStore(tt.raw); got != tt.want {
				t.Fatalf("normalizeStateStore(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
