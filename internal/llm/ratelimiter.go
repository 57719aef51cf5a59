package llm

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a requests-per-minute limiter shared by the text and image
// collaborators.
type TokenBucket struct {
	rpm      int
	mu       sync.Mutex
	tokens   int
	lastFill time.Time
}

// NewTokenBucket allows at most rpm requests per minute.
func NewTokenBucket(rpm int) *TokenBucket {
	return &TokenBucket{
		rpm:      rpm,
		tokens:   rpm,
		lastFill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(b.lastFill)

		// Refill tokens based on elapsed time.
		refill := int(elapsed.Seconds() * float64(b.rpm) / 60.0)
		if refill > 0 {
			b.tokens += refill
			if b.tokens > b.rpm {
				b.tokens = b.rpm
			}
			b.lastFill = now
		}

		if b.tokens > 0 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		// Wait a short interval before retrying.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// RateLimitedProvider wraps a Provider with a token bucket rate limiter.
type RateLimitedProvider struct {
	provider Provider
	bucket   *TokenBucket
}

// NewRateLimitedProvider wraps the given provider with a rate limiter
// that allows at most rpm requests per minute.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		bucket:   NewTokenBucket(rpm),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}
