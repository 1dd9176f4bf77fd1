package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Providers lists the accepted values of Config.Provider.
var Providers = []string{"gemini", "anthropic", "openai", "openrouter", "mock"}

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use. One of Providers.
	Provider string `toml:"provider" validate:"oneof=gemini anthropic openai openrouter mock"`

	Anthropic  AnthropicConfig  `toml:"anthropic"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Gemini     GeminiConfig     `toml:"gemini"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Retry      RetryConfig      `toml:"retry"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`

	// Timeout bounds a single request including retries. Default: 45s.
	Timeout time.Duration `toml:"timeout" validate:"min=0"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"` // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`    // Default: "gpt-4o-mini"
	BaseURL string `toml:"base_url"` // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`    // Default: "google/gemini-2.5-flash"
	BaseURL string `toml:"base_url"` // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts" validate:"min=1,max=10"`
	InitialWait time.Duration `toml:"initial_wait"`
	MaxWait     time.Duration `toml:"max_wait"`
	Multiplier  float64       `toml:"multiplier" validate:"gte=1"`
}

// RateLimitConfig caps the request rate sent to the provider. Free-tier
// keys are throttled per minute, so pacing requests locally avoids most
// quota errors. Zero RequestsPerMinute disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute" validate:"min=0"`
	Burst             int `toml:"burst" validate:"min=0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.5-flash",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 15,
			Burst:             3,
		},
		Timeout: 45 * time.Second,
	}
}

// envBinding ties an environment variable to a Config field.
type envBinding struct {
	name string
	set  func(*Config, string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

var envBindings = []envBinding{
	{"BRAINBREW_LLM_PROVIDER", setString(func(c *Config) *string { return &c.Provider })},
	{"BRAINBREW_ANTHROPIC_API_KEY", setString(func(c *Config) *string { return &c.Anthropic.APIKey })},
	{"BRAINBREW_ANTHROPIC_MODEL", setString(func(c *Config) *string { return &c.Anthropic.Model })},
	{"BRAINBREW_OPENAI_API_KEY", setString(func(c *Config) *string { return &c.OpenAI.APIKey })},
	{"BRAINBREW_OPENAI_MODEL", setString(func(c *Config) *string { return &c.OpenAI.Model })},
	{"BRAINBREW_OPENAI_BASE_URL", setString(func(c *Config) *string { return &c.OpenAI.BaseURL })},
	{"BRAINBREW_GEMINI_API_KEY", setString(func(c *Config) *string { return &c.Gemini.APIKey })},
	{"BRAINBREW_GEMINI_MODEL", setString(func(c *Config) *string { return &c.Gemini.Model })},
	{"BRAINBREW_OPENROUTER_API_KEY", setString(func(c *Config) *string { return &c.OpenRouter.APIKey })},
	{"BRAINBREW_OPENROUTER_MODEL", setString(func(c *Config) *string { return &c.OpenRouter.Model })},
	{"BRAINBREW_LLM_TIMEOUT", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Timeout = d
		return nil
	}},
	{"BRAINBREW_LLM_RPM", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.RateLimit.RequestsPerMinute = n
		return nil
	}},
}

// ApplyEnv overlays environment variables onto cfg. getenv is usually
// os.Getenv; unset variables leave the field untouched.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	for _, b := range envBindings {
		v := getenv(b.name)
		if v == "" {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or malformed values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DiscoverConfig probes the vendors' standard API key variables in priority
// order (Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config for
// the first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	return DiscoverConfigFrom(os.Getenv)
}

// DiscoverConfigFrom is DiscoverConfig over an arbitrary lookup.
func DiscoverConfigFrom(getenv func(string) string) (Config, bool) {
	cfg := DefaultConfig()

	if k := getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// HasKey reports whether the selected provider has credentials.
func (c Config) HasKey() bool {
	switch c.Provider {
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openrouter":
		return c.OpenRouter.APIKey != ""
	case "mock":
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini", "openrouter":
		if !c.HasKey() {
			return fmt.Errorf("an API key is required for the %s provider (set BRAINBREW_%s_API_KEY)", c.Provider, envSegment(c.Provider))
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func envSegment(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI"
	case "openrouter":
		return "OPENROUTER"
	case "anthropic":
		return "ANTHROPIC"
	}
	return "GEMINI"
}
