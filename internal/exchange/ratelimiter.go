package exchange

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a simple token-bucket limiter for outbound REST calls,
// adapted from the teacher's weight-based Binance rate limiter but
// simplified to a single bucket: CORE only needs to respect the batching
// discipline in spec §6.2, not Binance's full weight-cost table.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillEach time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing maxTokens requests, refilling to
// maxTokens every refillEvery.
func NewRateLimiter(maxTokens int, refillEvery time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillEach: refillEvery,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (r *RateLimiter) tryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastRefill); since >= r.refillEach {
		r.tokens = r.maxTokens
		r.lastRefill = time.Now()
	}
	if r.tokens <= 0 {
		return false
	}
	r.tokens--
	return true
}

// BatchOI issues getOpenInterest calls for symbols in groups of groupSize
// with a gap between groups, matching spec §6.2's batching discipline (OI
// across top-100 symbols in groups of 10, 100ms inter-group gap).
func BatchOI(ctx context.Context, c RESTClient, symbols []string, groupSize int, gap time.Duration) map[string]OpenInterest {
	out := make(map[string]OpenInterest, len(symbols))
	for i := 0; i < len(symbols); i += groupSize {
		end := i + groupSize
		if end > len(symbols) {
			end = len(symbols)
		}
		for _, sym := range symbols[i:end] {
			oi, err := c.GetOpenInterest(ctx, sym)
			if err == nil {
				out[sym] = oi
			}
		}
		if end < len(symbols) {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(gap):
			}
		}
	}
	return out
}
