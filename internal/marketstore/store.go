// Package marketstore implements DataStore: the single-writer, per-symbol
// rolling ticker state the rest of the pipeline reads from.
package marketstore

import (
	"errors"
	"sync"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/model"
)

var errMalformed = errors.New("marketstore: malformed ticker batch")

// UpdateResult is returned by Update.
type UpdateResult struct {
	NewListings []string
}

// Store is DataStore. It is the single writer of model.SymbolState; every
// other component calls Snapshot/SnapshotAll to get an immutable copy.
type Store struct {
	mu            sync.RWMutex
	clock         clock.Clock
	cfg           Config
	symbols       map[string]*model.SymbolState
	absorbedFirst bool // true once the first batch has been fully applied
}

// New creates an empty DataStore.
func New(c clock.Clock, cfg Config) *Store {
	return &Store{
		clock:   c,
		cfg:     cfg,
		symbols: make(map[string]*model.SymbolState),
	}
}

// Update applies a batch of tickers atomically: either every ticker in the
// batch is absorbed, or (on a malformed batch) none is. New-listing
// reporting only fires for symbols first observed after the very first
// batch has been absorbed, per spec §4.1. Out-of-order and duplicate
// eventTime updates for a symbol are ignored, per spec §3 and §5.
func (s *Store) Update(batch []model.Ticker) UpdateResult {
	if err := validateBatch(batch); err != nil {
		return UpdateResult{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var newListings []string
	firstBatch := !s.absorbedFirst

	for _, t := range batch {
		st, exists := s.symbols[t.Symbol]
		if !exists {
			st = &model.SymbolState{
				Symbol:      t.Symbol,
				FirstSeenTs: now,
				IsNew:       true,
			}
			s.symbols[t.Symbol] = st
			if !firstBatch {
				newListings = append(newListings, t.Symbol)
			}
		}

		if exists && !st.Current.EventTime.IsZero() && !t.EventTime.After(st.Current.EventTime) {
			continue
		}

		st.Current = t
		st.PriceHistory = append(st.PriceHistory, model.PricePoint{Price: t.LastPrice, Ts: now})
		st.VolumeHistory = append(st.VolumeHistory, model.VolumePoint{CumulativeQuoteVolume: t.QuoteVolume, Ts: now})
		st.PriceHistory = trimPriceHistory(st.PriceHistory, now, s.cfg.PriceWindow)
		st.VolumeHistory = trimVolumeHistory(st.VolumeHistory, now, s.cfg.VolumeWindow)

		if st.IsNew && now.Sub(st.FirstSeenTs) > s.cfg.NewListingTTL {
			st.IsNew = false
		}
	}

	s.absorbedFirst = true
	return UpdateResult{NewListings: newListings}
}

func validateBatch(batch []model.Ticker) error {
	for _, t := range batch {
		if t.Symbol == "" {
			return errMalformed
		}
	}
	return nil
}

func trimPriceHistory(points []model.PricePoint, now time.Time, window time.Duration) []model.PricePoint {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(points); i++ {
		if points[i].Ts.After(cutoff) {
			break
		}
	}
	if i == 0 {
		return points
	}
	return append([]model.PricePoint(nil), points[i:]...)
}

func trimVolumeHistory(points []model.VolumePoint, now time.Time, window time.Duration) []model.VolumePoint {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(points); i++ {
		if points[i].Ts.After(cutoff) {
			break
		}
	}
	if i == 0 {
		return points
	}
	return append([]model.VolumePoint(nil), points[i:]...)
}

// Snapshot returns a read-only copy of a single symbol's state.
func (s *Store) Snapshot(symbol string) (model.SymbolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.symbols[symbol]
	if !ok {
		return model.SymbolState{}, false
	}
	return st.Clone(), true
}

// SnapshotAll returns a read-only copy of every tracked symbol's state.
func (s *Store) SnapshotAll() map[string]model.SymbolState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.SymbolState, len(s.symbols))
	for sym, st := range s.symbols {
		out[sym] = st.Clone()
	}
	return out
}

// Symbols returns the set of tracked symbol names.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
