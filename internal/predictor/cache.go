package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"marketpulse/internal/logging"
	"marketpulse/internal/model"
)

// ResultTTL is the cache lifetime for a prediction keyed by signal_id
// (spec §8: two predict calls for the same signal_id within this window
// must return equal predictions without an additional outbound call).
const ResultTTL = 5 * time.Second

const resultKeyPrefix = "predictor:result:"

// errCacheMiss is returned by resultStore.Get when the key is absent; it is
// not a failure for the circuit-breaker accounting below.
var errCacheMiss = errors.New("predictor: cache miss")

// resultStore is the narrow slice of redis CachingClient depends on,
// letting tests substitute an in-memory fake instead of a live server.
type resultStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type redisResultStore struct{ client *redis.Client }

func (s redisResultStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", errCacheMiss
	}
	return v, err
}

func (s redisResultStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// CachingClient wraps a Client with a redis-backed per-signal result cache.
// Redis outages degrade to calling the underlying Client directly, tracked
// with the same failure-counting circuit breaker shape as the teacher's
// settings cache (internal/cache/cache_service.go).
type CachingClient struct {
	underlying Client
	store      resultStore
	logger     *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	maxFailures  int
}

// NewCachingClient wraps underlying with a redis-backed result cache.
func NewCachingClient(underlying Client, redisClient *redis.Client, logger *logging.Logger) *CachingClient {
	return newCachingClient(underlying, redisResultStore{client: redisClient}, logger)
}

func newCachingClient(underlying Client, store resultStore, logger *logging.Logger) *CachingClient {
	return &CachingClient{
		underlying: underlying, store: store, logger: logger,
		healthy: store != nil, maxFailures: 3,
	}
}

// Healthy delegates to the underlying predictor; cache-store availability
// affects only caching, never whether ML enhancement itself is offered.
func (c *CachingClient) Healthy(ctx context.Context) bool {
	return c.underlying.Healthy(ctx)
}

// Predict returns the cached prediction for signalID if present and fresh,
// else calls the underlying Client and caches the result for ResultTTL.
// signalID must be supplied via context (see WithSignalID); callers that
// omit it bypass the cache entirely.
func (c *CachingClient) Predict(ctx context.Context, features model.Features) (PredictionResult, error) {
	signalID, ok := signalIDFromContext(ctx)
	if !ok || !c.storeHealthy() {
		return c.underlying.Predict(ctx, features)
	}

	key := resultKeyPrefix + signalID
	if cached, ok := c.getCached(ctx, key); ok {
		return cached, nil
	}

	result, err := c.underlying.Predict(ctx, features)
	if err != nil {
		return result, err
	}

	c.setCached(ctx, key, result)
	return result, nil
}

func (c *CachingClient) getCached(ctx context.Context, key string) (PredictionResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errCacheMiss) {
			c.recordFailure()
		}
		return PredictionResult{}, false
	}
	c.recordSuccess()

	var result PredictionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return PredictionResult{}, false
	}
	return result, true
}

func (c *CachingClient) setCached(ctx context.Context, key string, result PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(data), ResultTTL); err != nil {
		c.recordFailure()
		return
	}
	c.recordSuccess()
}

func (c *CachingClient) storeHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store != nil && c.healthy
}

func (c *CachingClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	if c.failureCount >= c.maxFailures && c.healthy {
		c.healthy = false
		c.logger.Warn("predictor result cache degraded, bypassing store")
	}
}

func (c *CachingClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = true
	c.failureCount = 0
}

type signalIDKey struct{}

// WithSignalID attaches the emitted signal's ID to ctx so CachingClient can
// key its result cache on it.
func WithSignalID(ctx context.Context, signalID string) context.Context {
	return context.WithValue(ctx, signalIDKey{}, signalID)
}

func signalIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(signalIDKey{}).(string)
	return v, ok && v != ""
}

var _ Client = (*CachingClient)(nil)
var _ Client = (*HTTPClient)(nil)
