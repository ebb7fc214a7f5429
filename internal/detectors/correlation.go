package detectors

import (
	"math"

	"marketpulse/internal/clock"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// CorrelationConfig holds the rolling-window size and the
// decoupling/outperformance thresholds.
type CorrelationConfig struct {
	Window                  int     // default 60
	DecoupledBelow          float64 // default 0.3
	OutperformanceThreshold float64 // default 2
	ReferenceSymbol         string  // default "BTCUSDT"
}

// DefaultCorrelationConfig returns spec §4.2 defaults.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{Window: 60, DecoupledBelow: 0.3, OutperformanceThreshold: 2, ReferenceSymbol: "BTCUSDT"}
}

// CorrelationDetector computes each symbol's rolling Pearson correlation
// against the reference symbol (BTC) and reports decoupling or
// outperformance.
type CorrelationDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   CorrelationConfig
}

// NewCorrelationDetector creates a Correlation detector over store.
func NewCorrelationDetector(store *marketstore.Store, c clock.Clock, cfg CorrelationConfig) *CorrelationDetector {
	if cfg.Window <= 0 {
		cfg.Window = 60
	}
	if cfg.DecoupledBelow <= 0 {
		cfg.DecoupledBelow = 0.3
	}
	if cfg.OutperformanceThreshold <= 0 {
		cfg.OutperformanceThreshold = 2
	}
	if cfg.ReferenceSymbol == "" {
		cfg.ReferenceSymbol = "BTCUSDT"
	}
	return &CorrelationDetector{store: store, clock: c, cfg: cfg}
}

func (d *CorrelationDetector) Name() string { return "correlation" }

func tailPrices(points []model.PricePoint, n int) []float64 {
	if len(points) > n {
		points = points[len(points)-n:]
	}
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// Detect implements Detector.
func (d *CorrelationDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	ref, ok := snap[d.cfg.ReferenceSymbol]
	if !ok || len(ref.PriceHistory) < 2 {
		return nil
	}
	refPrices := tailPrices(ref.PriceHistory, d.cfg.Window)
	refChange, refOK := indicatorkit.PercentChange(refPrices[0], refPrices[len(refPrices)-1])
	if !refOK {
		return nil
	}

	alerts := make([]model.CorrelationAlert, 0, len(snap))
	for symbol, st := range snap {
		if symbol == d.cfg.ReferenceSymbol || len(st.PriceHistory) < 2 {
			continue
		}
		altPrices := tailPrices(st.PriceHistory, d.cfg.Window)
		n := len(altPrices)
		if n > len(refPrices) {
			n = len(refPrices)
		}
		if n < 2 {
			continue
		}
		a := altPrices[len(altPrices)-n:]
		b := refPrices[len(refPrices)-n:]

		r, ok := indicatorkit.PearsonCorrelation(a, b)
		if !ok {
			continue
		}
		altChange, ok := indicatorkit.PercentChange(a[0], a[len(a)-1])
		if !ok {
			continue
		}

		decoupled := math.Abs(r) < d.cfg.DecoupledBelow
		var outperformance float64
		if !decoupled {
			outperformance = math.Abs(altChange - refChange)
			if outperformance < d.cfg.OutperformanceThreshold {
				continue
			}
		} else if math.Abs(altChange-refChange) < d.cfg.OutperformanceThreshold {
			continue
		}

		dir := model.Long
		if altChange < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.CorrelationAlert{
			Symbol:         symbol,
			Correlation:    r,
			Decoupled:      decoupled,
			Outperformance: outperformance,
			Direction:      dir,
			Timestamp:      d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.CorrelationAlert) bool { return a.Outperformance > b.Outperformance },
		func(a model.CorrelationAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
