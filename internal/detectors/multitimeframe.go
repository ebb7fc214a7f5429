package detectors

import (
	"context"
	"math"
	"sort"
	"sync"

	"marketpulse/internal/clock"
	"marketpulse/internal/exchange"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// MultiTimeframeConfig holds the rotating-queue size/batch and the
// divergence threshold.
type MultiTimeframeConfig struct {
	QueueSize          int     // default 50, top symbols by liquidity
	BatchPerCycle      int     // default 5
	DivergenceThreshold float64 // default 2
}

// DefaultMultiTimeframeConfig returns spec §4.2 defaults.
func DefaultMultiTimeframeConfig() MultiTimeframeConfig {
	return MultiTimeframeConfig{QueueSize: 50, BatchPerCycle: 5, DivergenceThreshold: 2}
}

type timeframeReading struct {
	changePct float64
	rsi       float64
	hasRSI    bool
}

// MultiTimeframeDetector refreshes 5 of the top-50 liquidity symbols per
// cycle (driven externally by the scheduler) across 15m/1h/4h candles plus
// 1h RSI, classifying cross-timeframe alignment, divergence, and momentum.
type MultiTimeframeDetector struct {
	store  *marketstore.Store
	client exchange.RESTClient
	clock  clock.Clock
	cfg    MultiTimeframeConfig

	mu       sync.Mutex
	cursor   int
	readings map[string]map[exchange.KlineInterval]timeframeReading
}

// NewMultiTimeframeDetector creates a MultiTimeframe detector.
func NewMultiTimeframeDetector(store *marketstore.Store, client exchange.RESTClient, c clock.Clock, cfg MultiTimeframeConfig) *MultiTimeframeDetector {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 50
	}
	if cfg.BatchPerCycle <= 0 {
		cfg.BatchPerCycle = 5
	}
	if cfg.DivergenceThreshold <= 0 {
		cfg.DivergenceThreshold = 2
	}
	return &MultiTimeframeDetector{
		store: store, client: client, clock: c, cfg: cfg,
		readings: make(map[string]map[exchange.KlineInterval]timeframeReading),
	}
}

func (d *MultiTimeframeDetector) Name() string { return "multi_timeframe" }

// RSI1hFor returns the last-polled 1h RSI for symbol. The reversal sub-engine
// composes this directly rather than reading MultiTimeframe's alerts.
func (d *MultiTimeframeDetector) RSI1hFor(symbol string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tf, ok := d.readings[symbol]
	if !ok {
		return 0, false
	}
	r, ok := tf[exchange.Interval1h]
	if !ok || !r.hasRSI {
		return 0, false
	}
	return r.rsi, true
}

func (d *MultiTimeframeDetector) topLiquiditySymbols() []string {
	snap := d.store.SnapshotAll()
	symbols := make([]string, 0, len(snap))
	for s := range snap {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		return snap[symbols[i]].Current.QuoteVolume > snap[symbols[j]].Current.QuoteVolume
	})
	if len(symbols) > d.cfg.QueueSize {
		symbols = symbols[:d.cfg.QueueSize]
	}
	return symbols
}

// Update implements Updater: refreshes the next BatchPerCycle symbols in
// the rotating queue.
func (d *MultiTimeframeDetector) Update(ctx context.Context) error {
	queue := d.topLiquiditySymbols()
	if len(queue) == 0 {
		return nil
	}

	d.mu.Lock()
	start := d.cursor % len(queue)
	d.mu.Unlock()

	batch := make([]string, 0, d.cfg.BatchPerCycle)
	for i := 0; i < d.cfg.BatchPerCycle && i < len(queue); i++ {
		batch = append(batch, queue[(start+i)%len(queue)])
	}

	intervals := []exchange.KlineInterval{exchange.Interval15m, exchange.Interval1h, exchange.Interval4h}
	for _, symbol := range batch {
		perTF := make(map[exchange.KlineInterval]timeframeReading, len(intervals))
		for _, iv := range intervals {
			klines, err := d.client.GetKlines(ctx, symbol, iv, 30)
			if err != nil || len(klines) < 2 {
				continue
			}
			closes := make([]float64, len(klines))
			for i, k := range klines {
				closes[i] = k.Close
			}
			changePct, ok := indicatorkit.PercentChange(closes[0], closes[len(closes)-1])
			if !ok {
				continue
			}
			reading := timeframeReading{changePct: changePct}
			if iv == exchange.Interval1h {
				if rsi, ok := indicatorkit.WilderRSI(closes, 14); ok {
					reading.rsi, reading.hasRSI = rsi, true
				}
			}
			perTF[iv] = reading
		}
		d.mu.Lock()
		d.readings[symbol] = perTF
		d.mu.Unlock()
	}

	d.mu.Lock()
	d.cursor = (start + d.cfg.BatchPerCycle) % len(queue)
	d.mu.Unlock()
	return nil
}

// Detect implements Detector.
func (d *MultiTimeframeDetector) Detect() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	alerts := make([]model.MultiTimeframeAlert, 0, len(d.readings))
	for symbol, tf := range d.readings {
		r15, ok15 := tf[exchange.Interval15m]
		r1h, ok1h := tf[exchange.Interval1h]
		r4h, ok4h := tf[exchange.Interval4h]
		if !ok15 || !ok1h || !ok4h {
			continue
		}

		alignment := classifyAlignment(r15.changePct, r1h.changePct, r4h.changePct)
		divergence := model.DivergenceNone
		if r15.changePct > 0 && r4h.changePct < 0 && (r15.changePct-r4h.changePct) >= d.cfg.DivergenceThreshold {
			divergence = model.DivergenceBullish
		} else if r15.changePct < 0 && r4h.changePct > 0 && (r4h.changePct-r15.changePct) >= d.cfg.DivergenceThreshold {
			divergence = model.DivergenceBearish
		}

		momentum := model.MomentumSteady
		m15, m1h, m4h := math.Abs(r15.changePct), math.Abs(r1h.changePct), math.Abs(r4h.changePct)
		switch {
		case m15 > m1h && m1h > m4h:
			momentum = model.MomentumAccelerating
		case m15 < m1h && m1h < m4h:
			momentum = model.MomentumDecelerating
		}

		dir := model.Long
		if r1h.changePct < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.MultiTimeframeAlert{
			Symbol:     symbol,
			Alignment:  alignment,
			Divergence: divergence,
			Momentum:   momentum,
			Direction:  dir,
			Timestamp:  d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.MultiTimeframeAlert) bool { return a.Symbol < b.Symbol },
		func(a model.MultiTimeframeAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}

func classifyAlignment(c15, c1h, c4h float64) model.MTFAlignment {
	allPositive := c15 > 0 && c1h > 0 && c4h > 0
	allNegative := c15 < 0 && c1h < 0 && c4h < 0
	strong := math.Abs(c15) > 2 && math.Abs(c1h) > 2 && math.Abs(c4h) > 2

	switch {
	case allPositive && strong:
		return model.AlignStrongBullish
	case allPositive:
		return model.AlignBullish
	case allNegative && strong:
		return model.AlignStrongBearish
	case allNegative:
		return model.AlignBearish
	default:
		return model.AlignMixed
	}
}
