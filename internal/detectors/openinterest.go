package detectors

import (
	"context"
	"math"
	"sync"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/exchange"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// OpenInterestConfig holds the OI-delta emit threshold.
type OpenInterestConfig struct {
	MinOIChangePct float64 // default 2
	Symbols        []string
}

// DefaultOpenInterestConfig returns spec §4.2 defaults.
func DefaultOpenInterestConfig() OpenInterestConfig {
	return OpenInterestConfig{MinOIChangePct: 2}
}

// OpenInterestDetector polls OI every 120s (driven externally by the
// scheduler) and classifies the (OIΔ, priceΔ) pair.
type OpenInterestDetector struct {
	store  *marketstore.Store
	client exchange.RESTClient
	clock  clock.Clock
	cfg    OpenInterestConfig

	mu   sync.Mutex
	prev map[string]exchange.OpenInterest
	cur  map[string]exchange.OpenInterest
}

// NewOpenInterestDetector creates an OpenInterest detector.
func NewOpenInterestDetector(store *marketstore.Store, client exchange.RESTClient, c clock.Clock, cfg OpenInterestConfig) *OpenInterestDetector {
	if cfg.MinOIChangePct <= 0 {
		cfg.MinOIChangePct = 2
	}
	return &OpenInterestDetector{
		store: store, client: client, clock: c, cfg: cfg,
		prev: make(map[string]exchange.OpenInterest),
		cur:  make(map[string]exchange.OpenInterest),
	}
}

func (d *OpenInterestDetector) Name() string { return "open_interest" }

// ChangePctFor returns the last-computed OI delta percentage for symbol.
// Sentiment composes this directly rather than reading OpenInterestDetector's
// alerts, to stay independent of its own emit threshold.
func (d *OpenInterestDetector) ChangePctFor(symbol string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, okCur := d.cur[symbol]
	prev, okPrev := d.prev[symbol]
	if !okCur || !okPrev || prev.OpenInterest == 0 {
		return 0, false
	}
	return (cur.OpenInterest - prev.OpenInterest) / prev.OpenInterest * 100, true
}

// Update implements Updater: refreshes OI for the configured symbol set,
// batched via exchange.BatchOI (spec §6.2 batching discipline).
func (d *OpenInterestDetector) Update(ctx context.Context) error {
	symbols := d.cfg.Symbols
	if len(symbols) == 0 {
		symbols = d.store.Symbols()
	}
	results := exchange.BatchOI(ctx, d.client, symbols, 10, 100*time.Millisecond)

	d.mu.Lock()
	defer d.mu.Unlock()
	for sym, oi := range results {
		if prevOI, ok := d.cur[sym]; ok {
			d.prev[sym] = prevOI
		}
		d.cur[sym] = oi
	}
	return nil
}

// Detect implements Detector.
func (d *OpenInterestDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()

	d.mu.Lock()
	defer d.mu.Unlock()

	alerts := make([]model.OpenInterestAlert, 0, len(d.cur))
	for symbol, cur := range d.cur {
		prev, ok := d.prev[symbol]
		if !ok || prev.OpenInterest == 0 {
			continue
		}
		st, ok := snap[symbol]
		if !ok {
			continue
		}

		oiChangePct := (cur.OpenInterest - prev.OpenInterest) / prev.OpenInterest * 100
		if math.Abs(oiChangePct) < d.cfg.MinOIChangePct {
			continue
		}
		priceChange := st.Current.PriceChangePercent

		var signal model.OISignal
		switch {
		case oiChangePct > 0 && priceChange > 0:
			signal = model.OIBuildingLongs
		case oiChangePct > 0 && priceChange < 0:
			signal = model.OIBuildingShorts
		case oiChangePct < 0 && math.Abs(priceChange) > math.Abs(oiChangePct):
			signal = model.OIStrongTrend
		case oiChangePct < 0:
			signal = model.OIClosingPositions
		default:
			signal = model.OINeutral
		}

		dir := model.Long
		if priceChange < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.OpenInterestAlert{
			Symbol:      symbol,
			OIChangePct: oiChangePct,
			PriceChange: priceChange,
			Signal:      signal,
			Direction:   dir,
			Timestamp:   d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.OpenInterestAlert) bool { return math.Abs(a.OIChangePct) > math.Abs(b.OIChangePct) },
		func(a model.OpenInterestAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
