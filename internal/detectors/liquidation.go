package detectors

import (
	"sync"
	"time"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// LiquidationConfig holds the move/volume gates and intensity bands. This
// detector only ever sees public ticker data, so its notional estimate is
// intentionally approximate (spec Open Question: no ground-truth
// liquidation feed is wired).
type LiquidationConfig struct {
	MoveThresholdPct float64       // default 1
	MinVolume        float64       // default 5_000_000
	EstimateFactor   float64       // default 0.3
	Window           time.Duration // default 5m
	ExtremeNotional  float64       // default 5_000_000
	HighNotional     float64       // default 1_000_000
	MediumNotional   float64       // default 500_000
}

// DefaultLiquidationConfig returns spec §4.2 defaults.
func DefaultLiquidationConfig() LiquidationConfig {
	return LiquidationConfig{
		MoveThresholdPct: 1,
		MinVolume:        5_000_000,
		EstimateFactor:   0.3,
		Window:           5 * time.Minute,
		ExtremeNotional:  5_000_000,
		HighNotional:     1_000_000,
		MediumNotional:   500_000,
	}
}

type liquidationEvent struct {
	notional float64
	dir      model.Direction
	ts       time.Time
}

// LiquidationDetector estimates liquidation pressure from public ticker
// price/volume moves, since no ground-truth liquidation stream is
// available.
type LiquidationDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   LiquidationConfig

	mu     sync.Mutex
	events map[string][]liquidationEvent
}

// NewLiquidationDetector creates a Liquidation detector over store.
func NewLiquidationDetector(store *marketstore.Store, c clock.Clock, cfg LiquidationConfig) *LiquidationDetector {
	if cfg.MoveThresholdPct <= 0 {
		cfg.MoveThresholdPct = 1
	}
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = 5_000_000
	}
	if cfg.EstimateFactor <= 0 {
		cfg.EstimateFactor = 0.3
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.ExtremeNotional <= 0 {
		cfg.ExtremeNotional = 5_000_000
	}
	if cfg.HighNotional <= 0 {
		cfg.HighNotional = 1_000_000
	}
	if cfg.MediumNotional <= 0 {
		cfg.MediumNotional = 500_000
	}
	return &LiquidationDetector{store: store, clock: c, cfg: cfg, events: make(map[string][]liquidationEvent)}
}

func (d *LiquidationDetector) Name() string { return "liquidation" }

// Detect implements Detector. Unlike most detectors it also accumulates
// internal state (each call may observe a fresh move worth recording), so
// it is not called concurrently with itself.
func (d *LiquidationDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for symbol, st := range snap {
		if len(st.PriceHistory) < 10 || st.Current.QuoteVolume <= d.cfg.MinVolume {
			continue
		}
		window := st.PriceHistory[len(st.PriceHistory)-10:]
		first, last := window[0].Price, window[len(window)-1].Price
		if first == 0 {
			continue
		}
		movePct := (last - first) / first * 100
		if movePct < 0 {
			movePct = -movePct
		}
		if movePct <= d.cfg.MoveThresholdPct {
			continue
		}

		notional := st.Current.QuoteVolume * (movePct / 100) * d.cfg.EstimateFactor
		dir := model.Long
		if last < first {
			dir = model.Short
		}
		d.events[symbol] = append(d.events[symbol], liquidationEvent{notional: notional, dir: dir, ts: now})
	}

	alerts := make([]model.LiquidationAlert, 0, len(d.events))
	for symbol, evs := range d.events {
		cutoff := now.Add(-d.cfg.Window)
		kept := evs[:0:0]
		var total float64
		var longNotional, shortNotional float64
		for _, e := range evs {
			if e.ts.Before(cutoff) {
				continue
			}
			kept = append(kept, e)
			total += e.notional
			if e.dir == model.Long {
				longNotional += e.notional
			} else {
				shortNotional += e.notional
			}
		}
		d.events[symbol] = kept
		if total == 0 {
			continue
		}

		var intensity model.LiquidationIntensity
		switch {
		case total >= d.cfg.ExtremeNotional:
			intensity = model.LiquidationExtreme
		case total >= d.cfg.HighNotional:
			intensity = model.LiquidationHigh
		case total >= d.cfg.MediumNotional:
			intensity = model.LiquidationMedium
		default:
			intensity = model.LiquidationLow
		}

		dir := model.Long
		if shortNotional > longNotional {
			dir = model.Short
		}
		alerts = append(alerts, model.LiquidationAlert{
			Symbol:            symbol,
			EstimatedNotional: total,
			Intensity:         intensity,
			Direction:         dir,
			Timestamp:         now,
		})
	}

	sortBySymbol(alerts,
		func(a, b model.LiquidationAlert) bool { return a.EstimatedNotional > b.EstimatedNotional },
		func(a model.LiquidationAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
