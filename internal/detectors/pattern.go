package detectors

import (
	"context"
	"math"
	"sync"

	"marketpulse/internal/clock"
	"marketpulse/internal/exchange"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// PatternConfig holds the candle window and proximity/cluster thresholds.
type PatternConfig struct {
	CandleCount       int     // default 48, 1h candles
	ProximityPct      float64 // default 2
	MinClusterTouches int     // default 3
	ClusterTolerance  float64 // default 0.5 (%), bucket width for touch clustering
	DoubleWindow      int     // default 20, most recent closes examined
	DoubleTolerance   float64 // default 2 (%), extremes must match within this
	ReclaimPct        float64 // default 2
	Symbols           []string
}

// DefaultPatternConfig returns spec §4.2 defaults.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		CandleCount: 48, ProximityPct: 2, MinClusterTouches: 3, ClusterTolerance: 0.5,
		DoubleWindow: 20, DoubleTolerance: 2, ReclaimPct: 2,
	}
}

// PatternDetector polls 1h candles (driven externally by the scheduler) and
// flags proximity to key levels or double top/bottom formations.
type PatternDetector struct {
	store  *marketstore.Store
	client exchange.RESTClient
	clock  clock.Clock
	cfg    PatternConfig

	mu      sync.Mutex
	candles map[string][]exchange.Kline
}

// NewPatternDetector creates a Pattern detector.
func NewPatternDetector(store *marketstore.Store, client exchange.RESTClient, c clock.Clock, cfg PatternConfig) *PatternDetector {
	def := DefaultPatternConfig()
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = def.CandleCount
	}
	if cfg.ProximityPct <= 0 {
		cfg.ProximityPct = def.ProximityPct
	}
	if cfg.MinClusterTouches <= 0 {
		cfg.MinClusterTouches = def.MinClusterTouches
	}
	if cfg.ClusterTolerance <= 0 {
		cfg.ClusterTolerance = def.ClusterTolerance
	}
	if cfg.DoubleWindow <= 0 {
		cfg.DoubleWindow = def.DoubleWindow
	}
	if cfg.DoubleTolerance <= 0 {
		cfg.DoubleTolerance = def.DoubleTolerance
	}
	if cfg.ReclaimPct <= 0 {
		cfg.ReclaimPct = def.ReclaimPct
	}
	return &PatternDetector{store: store, client: client, clock: c, cfg: cfg, candles: make(map[string][]exchange.Kline)}
}

func (d *PatternDetector) Name() string { return "pattern" }

// Update implements Updater: refreshes 1h candles for the configured
// symbols (all store symbols if unset).
func (d *PatternDetector) Update(ctx context.Context) error {
	symbols := d.cfg.Symbols
	if len(symbols) == 0 {
		symbols = d.store.Symbols()
	}
	for _, symbol := range symbols {
		klines, err := d.client.GetKlines(ctx, symbol, exchange.Interval1h, d.cfg.CandleCount)
		if err != nil || len(klines) == 0 {
			continue
		}
		d.mu.Lock()
		d.candles[symbol] = klines
		d.mu.Unlock()
	}
	return nil
}

func roundNumberLevel(price float64) float64 {
	if price <= 0 {
		return 0
	}
	magnitude := math.Pow(10, math.Floor(math.Log10(price))-1)
	return math.Round(price/magnitude) * magnitude
}

func touchClusters(klines []exchange.Kline, tolerancePct float64, minTouches int) []float64 {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make([]bucket, 0)
	assign := func(level float64) {
		for i := range buckets {
			center := buckets[i].sum / float64(buckets[i].count)
			if center == 0 {
				continue
			}
			if math.Abs(level-center)/center*100 <= tolerancePct {
				buckets[i].sum += level
				buckets[i].count++
				return
			}
		}
		buckets = append(buckets, bucket{sum: level, count: 1})
	}
	for _, k := range klines {
		assign(k.High)
		assign(k.Low)
	}

	levels := make([]float64, 0)
	for _, b := range buckets {
		if b.count >= minTouches {
			levels = append(levels, b.sum/float64(b.count))
		}
	}
	return levels
}

// Detect implements Detector.
func (d *PatternDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()

	d.mu.Lock()
	defer d.mu.Unlock()

	alerts := make([]model.PatternAlert, 0)
	for symbol, klines := range d.candles {
		st, ok := snap[symbol]
		if !ok || len(klines) == 0 {
			continue
		}
		price := st.Current.LastPrice
		if price == 0 {
			continue
		}

		levels := touchClusters(klines, d.cfg.ClusterTolerance, d.cfg.MinClusterTouches)
		levels = append(levels, st.Current.HighPrice, st.Current.LowPrice, roundNumberLevel(price))

		bestDist := math.MaxFloat64
		for _, lvl := range levels {
			if lvl == 0 {
				continue
			}
			dist := math.Abs(price-lvl) / lvl * 100
			if dist < bestDist {
				bestDist = dist
			}
		}
		if bestDist <= d.cfg.ProximityPct {
			dir := model.Long
			if price < st.Current.OpenPrice {
				dir = model.Short
			}
			confidence := (1 - bestDist/d.cfg.ProximityPct) * 100
			alerts = append(alerts, model.PatternAlert{
				Symbol:            symbol,
				Kind:              model.PatternKeyLevel,
				DistanceFromLevel: bestDist,
				Confidence:        confidence,
				Direction:         dir,
				Timestamp:         d.clock.Now(),
			})
		}

		if alert, found := detectDoubleFormation(symbol, klines, d.cfg); found {
			alert.Timestamp = d.clock.Now()
			alerts = append(alerts, alert)
		}
	}

	sortBySymbol(alerts,
		func(a, b model.PatternAlert) bool { return a.Confidence > b.Confidence },
		func(a model.PatternAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}

func detectDoubleFormation(symbol string, klines []exchange.Kline, cfg PatternConfig) (model.PatternAlert, bool) {
	if len(klines) < cfg.DoubleWindow {
		return model.PatternAlert{}, false
	}
	window := klines[len(klines)-cfg.DoubleWindow:]
	mid := len(window) / 2
	first, second := window[:mid], window[mid:]

	firstHigh, firstLow := extremes(first)
	secondHigh, secondLow := extremes(second)
	currentClose := window[len(window)-1].Close

	if firstHigh > 0 && math.Abs(firstHigh-secondHigh)/firstHigh*100 <= cfg.DoubleTolerance {
		reclaim := (firstHigh - currentClose) / firstHigh * 100
		if reclaim >= cfg.ReclaimPct {
			return model.PatternAlert{Symbol: symbol, Kind: model.PatternDoubleTop, Confidence: 70, Direction: model.Short}, true
		}
	}
	if firstLow > 0 && math.Abs(firstLow-secondLow)/firstLow*100 <= cfg.DoubleTolerance {
		reclaim := (currentClose - firstLow) / firstLow * 100
		if reclaim >= cfg.ReclaimPct {
			return model.PatternAlert{Symbol: symbol, Kind: model.PatternDoubleBottom, Confidence: 70, Direction: model.Long}, true
		}
	}
	return model.PatternAlert{}, false
}

func extremes(klines []exchange.Kline) (high, low float64) {
	if len(klines) == 0 {
		return 0, 0
	}
	high, low = klines[0].High, klines[0].Low
	for _, k := range klines[1:] {
		if k.High > high {
			high = k.High
		}
		if k.Low < low {
			low = k.Low
		}
	}
	return high, low
}
