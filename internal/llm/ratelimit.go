package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider paces requests with a token bucket so a session does
// not trip the provider's per-minute quota.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p with a limiter derived from cfg. A zero
// RequestsPerMinute returns p unchanged.
func WithRateLimit(p Provider, cfg RateLimitConfig) Provider {
	if cfg.RequestsPerMinute <= 0 {
		return p
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(cfg.RequestsPerMinute)
	return &RateLimitedProvider{
		inner:   p,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

func (r *RateLimitedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Wait fails early when the deadline would pass before a token is
		// available; surface that as throttling.
		return nil, &ErrRateLimit{Err: err}
	}
	return r.inner.Generate(ctx, req)
}

func (r *RateLimitedProvider) ModelID() string {
	return r.inner.ModelID()
}
