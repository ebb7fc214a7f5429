package detectors

import (
	"math"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// VolatilityConfig holds the emit/critical thresholds, both in |Δ24h%|.
type VolatilityConfig struct {
	MinThreshold      float64 // default 10
	CriticalThreshold float64 // default 25
}

// DefaultVolatilityConfig returns spec §4.2 defaults.
func DefaultVolatilityConfig() VolatilityConfig {
	return VolatilityConfig{MinThreshold: 10, CriticalThreshold: 25}
}

// VolatilityDetector emits when a symbol's 24h percentage change crosses
// MinThreshold.
type VolatilityDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   VolatilityConfig
}

// NewVolatilityDetector creates a Volatility detector over store.
func NewVolatilityDetector(store *marketstore.Store, c clock.Clock, cfg VolatilityConfig) *VolatilityDetector {
	if cfg.MinThreshold <= 0 {
		cfg.MinThreshold = 10
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 25
	}
	return &VolatilityDetector{store: store, clock: c, cfg: cfg}
}

func (d *VolatilityDetector) Name() string { return "volatility" }

// Detect implements Detector.
func (d *VolatilityDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.VolatilityAlert, 0, len(snap))

	for symbol, st := range snap {
		change := st.Current.PriceChangePercent
		if math.Abs(change) < d.cfg.MinThreshold {
			continue
		}
		dir := model.Long
		if change < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.VolatilityAlert{
			Symbol:     symbol,
			Change24h:  change,
			IsCritical: math.Abs(change) >= d.cfg.CriticalThreshold,
			Direction:  dir,
			Timestamp:  d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.VolatilityAlert) bool { return math.Abs(a.Change24h) > math.Abs(b.Change24h) },
		func(a model.VolatilityAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
