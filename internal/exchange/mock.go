package exchange

import (
	"context"
	"sync"
	"time"

	"marketpulse/internal/model"
)

// MockClient is a deterministic in-memory Client for detector and scheduler
// tests: it never dials out, and every accessor reads from state seeded by
// the test via Seed*.
type MockClient struct {
	mu            sync.RWMutex
	klines        map[string][]Kline
	fundingRates  map[string]FundingRate
	openInterest  map[string]OpenInterest
	streamBatches [][]model.Ticker
}

// NewMockClient creates an empty mock; call the Seed* methods to populate
// it before use.
func NewMockClient() *MockClient {
	return &MockClient{
		klines:       make(map[string][]Kline),
		fundingRates: make(map[string]FundingRate),
		openInterest: make(map[string]OpenInterest),
	}
}

// SeedKlines registers the kline series returned for symbol regardless of
// requested interval/limit.
func (m *MockClient) SeedKlines(symbol string, klines []Kline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.klines[symbol] = klines
}

// SeedFundingRate registers the funding rate returned for a symbol.
func (m *MockClient) SeedFundingRate(fr FundingRate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fundingRates[fr.Symbol] = fr
}

// SeedOpenInterest registers the open interest returned for a symbol.
func (m *MockClient) SeedOpenInterest(oi OpenInterest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openInterest[oi.Symbol] = oi
}

// SeedStreamBatches queues ticker batches Stream will deliver in order, one
// per onBatch invocation, then blocks until ctx is cancelled.
func (m *MockClient) SeedStreamBatches(batches ...[]model.Ticker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamBatches = batches
}

// Stream implements StreamClient by replaying the seeded batches once, then
// blocking until ctx is done.
func (m *MockClient) Stream(ctx context.Context, onBatch func([]model.Ticker)) error {
	m.mu.RLock()
	batches := m.streamBatches
	m.mu.RUnlock()

	for _, b := range batches {
		onBatch(b)
	}
	<-ctx.Done()
	return ctx.Err()
}

// GetFundingRates implements RESTClient.
func (m *MockClient) GetFundingRates(ctx context.Context) ([]FundingRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FundingRate, 0, len(m.fundingRates))
	for _, fr := range m.fundingRates {
		out = append(out, fr)
	}
	return out, nil
}

// GetOpenInterest implements RESTClient.
func (m *MockClient) GetOpenInterest(ctx context.Context, symbol string) (OpenInterest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	oi, ok := m.openInterest[symbol]
	if !ok {
		return OpenInterest{Symbol: symbol, Ts: time.Now()}, nil
	}
	return oi, nil
}

// GetKlines implements RESTClient.
func (m *MockClient) GetKlines(ctx context.Context, symbol string, interval KlineInterval, limit int) ([]Kline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.klines[symbol]
	if len(all) <= limit || limit <= 0 {
		out := make([]Kline, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]Kline, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

var _ Client = (*MockClient)(nil)
