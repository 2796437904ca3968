package model

import (
	"context"

	"golang.org/x/time/rate"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
)

type rateLimited struct {
	next    Model
	limiter *rate.Limiter
}

// RateLimited returns a Model that waits for limiter before every call to m.
// A nil limiter returns m unchanged.
func RateLimited(m Model, limiter *rate.Limiter) Model {
	if limiter == nil {
		return m
	}
	return &rateLimited{next: m, limiter: limiter}
}

func (r *rateLimited) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, mcperrors.FromContextError(ctx.Err(), "model_rate_limit", 0)
		}
		// the wait would outlast the deadline
		return nil, mcperrors.FromContextError(context.DeadlineExceeded, "model_rate_limit", 0)
	}
	return r.next.Complete(ctx, req)
}

// NewLimiter builds a limiter allowing perSecond calls with the given burst.
// A non-positive rate means no limit and returns nil.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
