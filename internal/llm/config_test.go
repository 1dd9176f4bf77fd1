package llm

import (
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"BRAINBREW_LLM_PROVIDER":       "openrouter",
		"BRAINBREW_OPENROUTER_API_KEY": "sk-or",
		"BRAINBREW_OPENROUTER_MODEL":   "meta-llama/llama-3-8b",
		"BRAINBREW_LLM_TIMEOUT":        "20s",
		"BRAINBREW_LLM_RPM":            "60",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Provider != "openrouter" || cfg.OpenRouter.APIKey != "sk-or" || cfg.OpenRouter.Model != "meta-llama/llama-3-8b" {
		t.Errorf("openrouter settings not applied: %+v", cfg.OpenRouter)
	}
	if cfg.Timeout != 20*time.Second {
		t.Errorf("Timeout = %s, want 20s", cfg.Timeout)
	}
	if cfg.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Gemini.Model != "gemini-flash" {
		t.Errorf("unset variables must keep defaults, Gemini.Model = %q", cfg.Gemini.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnv_Malformed(t *testing.T) {
	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, envMap(map[string]string{"BRAINBREW_LLM_TIMEOUT": "soon"})); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestDiscoverConfig_Priority(t *testing.T) {
	cfg, ok := DiscoverConfigFrom(envMap(map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant",
		"GEMINI_API_KEY":    "g-key",
	}))
	if !ok || cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" {
		t.Errorf("got %q ok=%v, want gemini", cfg.Provider, ok)
	}

	if _, ok := DiscoverConfigFrom(envMap(nil)); ok {
		t.Error("expected no provider without keys")
	}
}

func TestValidate_OpenRouterNeedsKey(t *testing.T) {
	cfg := Config{Provider: "openrouter"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for openrouter without key")
	}
	if cfg.HasKey() {
		t.Error("HasKey should be false")
	}
}
