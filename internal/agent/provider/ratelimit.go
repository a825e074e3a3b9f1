package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Provider with a client-side request budget.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// WithRateLimit limits p to requestsPerMinute with a burst of one. A
// non-positive rate returns p unchanged.
func WithRateLimit(p Provider, requestsPerMinute float64) Provider {
	if requestsPerMinute <= 0 {
		return p
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerMinute/60), 1),
	}
}

// Chat waits for a token before delegating.
func (r *RateLimited) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.Provider.Chat(ctx, systemPrompt, messages)
}
