package detectors

import (
	"math"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// RangeConfig holds the emit threshold and the near-extreme band.
type RangeConfig struct {
	MinRangePct  float64 // default 15
	ExtremeBand  float64 // default 20 (top/bottom 20%)
	BreakingBand float64 // default 0.1 (within 0.1% of the extreme)
}

// DefaultRangeConfig returns spec §4.2 defaults.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{MinRangePct: 15, ExtremeBand: 20, BreakingBand: 0.1}
}

// RangeDetector classifies a symbol's position within its 24h high/low
// range.
type RangeDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   RangeConfig
}

// NewRangeDetector creates a Range detector over store.
func NewRangeDetector(store *marketstore.Store, c clock.Clock, cfg RangeConfig) *RangeDetector {
	if cfg.MinRangePct <= 0 {
		cfg.MinRangePct = 15
	}
	if cfg.ExtremeBand <= 0 {
		cfg.ExtremeBand = 20
	}
	if cfg.BreakingBand <= 0 {
		cfg.BreakingBand = 0.1
	}
	return &RangeDetector{store: store, clock: c, cfg: cfg}
}

func (d *RangeDetector) Name() string { return "range" }

// Detect implements Detector.
func (d *RangeDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.RangeAlert, 0, len(snap))

	for symbol, st := range snap {
		c := st.Current
		if c.OpenPrice == 0 || c.HighPrice <= c.LowPrice {
			continue
		}
		rangePct := (c.HighPrice - c.LowPrice) / c.OpenPrice * 100
		if rangePct < d.cfg.MinRangePct {
			continue
		}

		span := c.HighPrice - c.LowPrice
		percentile := (c.LastPrice - c.LowPrice) / span * 100

		var position model.RangePosition
		switch {
		case math.Abs(c.HighPrice-c.LastPrice)/c.HighPrice*100 <= d.cfg.BreakingBand,
			math.Abs(c.LastPrice-c.LowPrice)/c.LowPrice*100 <= d.cfg.BreakingBand:
			position = model.PositionBreaking
		case percentile >= 100-d.cfg.ExtremeBand:
			position = model.PositionNearHigh
		case percentile <= d.cfg.ExtremeBand:
			position = model.PositionNearLow
		default:
			position = model.PositionMiddle
		}

		dir := model.Long
		if c.LastPrice < c.OpenPrice {
			dir = model.Short
		}
		alerts = append(alerts, model.RangeAlert{
			Symbol:    symbol,
			RangePct:  rangePct,
			Position:  position,
			Direction: dir,
			Timestamp: d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.RangeAlert) bool { return a.RangePct > b.RangePct },
		func(a model.RangeAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
