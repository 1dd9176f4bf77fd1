package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/store"
)

// Deps are the optional collaborators threaded through the middleware chain.
type Deps struct {
	Events  store.EventRepo
	Logger  *logging.Logger
	Metrics *Metrics
}

// NewProvider creates a Provider from configuration, wrapped in the
// standard middleware.
func NewProvider(ctx context.Context, cfg Config, deps Deps) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, deps), nil
}

// Wrap applies the middleware chain to base:
// caller → tracing → retry → rate limit → logging → base.
// Each retry attempt waits for its own rate limit token and is logged.
func Wrap(base Provider, cfg Config, deps Deps) Provider {
	p := WithLogging(base, cfg.Provider, deps.Events, deps.Logger, deps.Metrics)
	p = WithRateLimit(p, cfg.RateLimit)
	p = WithRetry(p, cfg.Retry)
	return WithTracing(p)
}
