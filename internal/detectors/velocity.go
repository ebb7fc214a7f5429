package detectors

import (
	"math"
	"sync"

	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// VelocityConfig holds the emit threshold (%/min) and the trend-comparison
// band.
type VelocityConfig struct {
	MinVelocityPctPerMin float64 // default 0.5
	TrendBand            float64 // default 0.1
}

// DefaultVelocityConfig returns spec §4.2 defaults.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{MinVelocityPctPerMin: 0.5, TrendBand: 0.1}
}

// VelocityDetector computes price velocity (%/min) over the store's price
// history window and classifies its trend against the previous call's
// reading for the same symbol.
type VelocityDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   VelocityConfig

	mu       sync.Mutex
	lastVelo map[string]float64
}

// NewVelocityDetector creates a Velocity detector over store.
func NewVelocityDetector(store *marketstore.Store, c clock.Clock, cfg VelocityConfig) *VelocityDetector {
	if cfg.MinVelocityPctPerMin <= 0 {
		cfg.MinVelocityPctPerMin = 0.5
	}
	if cfg.TrendBand <= 0 {
		cfg.TrendBand = 0.1
	}
	return &VelocityDetector{store: store, clock: c, cfg: cfg, lastVelo: make(map[string]float64)}
}

func (d *VelocityDetector) Name() string { return "velocity" }

// PriorVelocities snapshots the velocity (%/min) recorded per symbol as of
// the most recent Detect call, before the next one overwrites it. A caller
// that needs acceleration (this reading minus the last) must snapshot
// before calling Detect again.
func (d *VelocityDetector) PriorVelocities() map[string]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]float64, len(d.lastVelo))
	for k, v := range d.lastVelo {
		out[k] = v
	}
	return out
}

// Detect implements Detector.
func (d *VelocityDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.VelocityAlert, 0, len(snap))

	d.mu.Lock()
	defer d.mu.Unlock()

	for symbol, st := range snap {
		if len(st.PriceHistory) < 2 {
			continue
		}
		first := st.PriceHistory[0]
		last := st.PriceHistory[len(st.PriceHistory)-1]
		minutes := last.Ts.Sub(first.Ts).Minutes()
		if minutes <= 0 || first.Price == 0 {
			continue
		}
		pctChange := (last.Price - first.Price) / first.Price * 100
		velocity := pctChange / minutes

		if math.Abs(velocity) < d.cfg.MinVelocityPctPerMin {
			d.lastVelo[symbol] = velocity
			continue
		}

		trend := model.TrendSteady
		if prev, ok := d.lastVelo[symbol]; ok {
			if velocity > prev+d.cfg.TrendBand {
				trend = model.TrendAccelerating
			} else if velocity < prev-d.cfg.TrendBand {
				trend = model.TrendDecelerating
			}
		}
		d.lastVelo[symbol] = velocity

		dir := model.Long
		if velocity < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.VelocityAlert{
			Symbol:      symbol,
			VelocityPct: velocity,
			Trend:       trend,
			Direction:   dir,
			Timestamp:   d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.VelocityAlert) bool { return math.Abs(a.VelocityPct) > math.Abs(b.VelocityPct) },
		func(a model.VelocityAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
