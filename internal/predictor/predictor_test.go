package predictor

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketpulse/internal/logging"
	"marketpulse/internal/model"
)

// fakeClient counts outbound Predict calls so the cache test can assert no
// additional call happens on a cache hit.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	healthy bool
	result  PredictionResult
}

func (f *fakeClient) Predict(ctx context.Context, features model.Features) (PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, nil
}

func (f *fakeClient) Healthy(ctx context.Context) bool { return f.healthy }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory resultStore fake standing in for redis.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", errCacheMiss
	}
	return v, nil
}

func (s *memStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// TestCachingClient_SameSignalIDReturnsCachedResult is the spec §8 cache
// invariant: two predict calls for the same signal_id within 5s return
// equal predictions without an additional outbound call.
func TestCachingClient_SameSignalIDReturnsCachedResult(t *testing.T) {
	underlying := &fakeClient{healthy: true, result: PredictionResult{WinProbability: 0.72, QualityTier: model.TierHigh, Confidence: 80, ModelVersion: "v1"}}
	client := newCachingClient(underlying, newMemStore(), logging.New(&logging.Config{Component: "test"}))

	ctx := WithSignalID(context.Background(), "sig-123")

	first, err := client.Predict(ctx, model.Features{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := client.Predict(ctx, model.Features{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("expected equal predictions, got %+v vs %+v", first, second)
	}
	if got := underlying.callCount(); got != 1 {
		t.Errorf("expected exactly one outbound call, got %d", got)
	}
}

func TestCachingClient_DifferentSignalIDsBothCallUnderlying(t *testing.T) {
	underlying := &fakeClient{healthy: true, result: PredictionResult{WinProbability: 0.5}}
	client := newCachingClient(underlying, newMemStore(), logging.New(&logging.Config{Component: "test"}))

	if _, err := client.Predict(WithSignalID(context.Background(), "sig-a"), model.Features{}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Predict(WithSignalID(context.Background(), "sig-b"), model.Features{}); err != nil {
		t.Fatal(err)
	}

	if got := underlying.callCount(); got != 2 {
		t.Errorf("expected two outbound calls for distinct signal ids, got %d", got)
	}
}

func TestCachingClient_NoSignalIDBypassesCache(t *testing.T) {
	underlying := &fakeClient{healthy: true}
	client := newCachingClient(underlying, newMemStore(), logging.New(&logging.Config{Component: "test"}))

	ctx := context.Background()
	if _, err := client.Predict(ctx, model.Features{}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Predict(ctx, model.Features{}); err != nil {
		t.Fatal(err)
	}

	if got := underlying.callCount(); got != 2 {
		t.Errorf("expected every call to reach underlying without a signal id, got %d", got)
	}
}

func TestCachingClient_HealthyDelegatesToUnderlying(t *testing.T) {
	underlying := &fakeClient{healthy: false}
	client := newCachingClient(underlying, newMemStore(), logging.New(&logging.Config{Component: "test"}))

	if client.Healthy(context.Background()) {
		t.Error("expected Healthy to reflect the underlying predictor's unhealthy state")
	}
}
