package detectors

import (
	"marketpulse/internal/clock"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// VolumeConfig holds the spike multiplier and 24h quote-volume floor.
type VolumeConfig struct {
	RecentWindow   int     // default 10
	OlderWindow    int     // default 20
	SpikeMultiplier float64 // default 3
	MinQuoteVol24h float64 // default 1_000_000
}

// DefaultVolumeConfig returns spec §4.2 defaults.
func DefaultVolumeConfig() VolumeConfig {
	return VolumeConfig{RecentWindow: 10, OlderWindow: 20, SpikeMultiplier: 3, MinQuoteVol24h: 1_000_000}
}

// VolumeDetector compares a short recent cumulative-volume rate against a
// longer trailing rate to flag spikes. The increments come from the
// exchange's rolling 24h quote volume, which also drops volume leaving its
// 24h window, so the multiplier approximates traded volume and is not
// corrected for that rollover.
type VolumeDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   VolumeConfig
}

// NewVolumeDetector creates a Volume detector over store.
func NewVolumeDetector(store *marketstore.Store, c clock.Clock, cfg VolumeConfig) *VolumeDetector {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 10
	}
	if cfg.OlderWindow <= 0 {
		cfg.OlderWindow = 20
	}
	if cfg.SpikeMultiplier <= 0 {
		cfg.SpikeMultiplier = 3
	}
	if cfg.MinQuoteVol24h <= 0 {
		cfg.MinQuoteVol24h = 1_000_000
	}
	return &VolumeDetector{store: store, clock: c, cfg: cfg}
}

func (d *VolumeDetector) Name() string { return "volume" }

// Detect implements Detector.
func (d *VolumeDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.VolumeAlert, 0, len(snap))

	for symbol, st := range snap {
		if st.Current.QuoteVolume < d.cfg.MinQuoteVol24h {
			continue
		}
		hist := st.VolumeHistory
		need := d.cfg.RecentWindow + d.cfg.OlderWindow + 1
		if len(hist) < need {
			continue
		}

		// Non-overlapping windows: the most recent RecentWindow increments
		// vs. the OlderWindow increments immediately preceding them.
		last := hist[len(hist)-1]
		boundary := hist[len(hist)-1-d.cfg.RecentWindow]
		olderStart := hist[len(hist)-1-d.cfg.RecentWindow-d.cfg.OlderWindow]

		recentRate := (last.CumulativeQuoteVolume - boundary.CumulativeQuoteVolume) / float64(d.cfg.RecentWindow)
		avgRate := (boundary.CumulativeQuoteVolume - olderStart.CumulativeQuoteVolume) / float64(d.cfg.OlderWindow)

		if avgRate <= 0 {
			continue
		}
		multiplier := recentRate / avgRate
		if multiplier < d.cfg.SpikeMultiplier {
			continue
		}

		dir := model.Long
		if st.Current.PriceChangePercent < 0 {
			dir = model.Short
		}
		alerts = append(alerts, model.VolumeAlert{
			Symbol:      symbol,
			Multiplier:  multiplier,
			QuoteVol24h: st.Current.QuoteVolume,
			Direction:   dir,
			Timestamp:   d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.VolumeAlert) bool { return a.Multiplier > b.Multiplier },
		func(a model.VolumeAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
