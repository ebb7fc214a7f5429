package detectors

import (
	"marketpulse/internal/clock"
	"marketpulse/internal/indicatorkit"
	"marketpulse/internal/marketstore"
	"marketpulse/internal/model"
)

// WhaleConfig holds the burst-size/ratio gates.
type WhaleConfig struct {
	RecentWindow    int     // default 10
	OlderWindow     int     // default 20
	MinBurstSizeUSD float64 // default 100_000
	MinRatio        float64 // default 3
	DistributionRatio float64 // default 5
}

// DefaultWhaleConfig returns spec §4.2 defaults.
func DefaultWhaleConfig() WhaleConfig {
	return WhaleConfig{RecentWindow: 10, OlderWindow: 20, MinBurstSizeUSD: 100_000, MinRatio: 3, DistributionRatio: 5}
}

// WhaleDetector flags large-size volume bursts relative to a trailing
// baseline, classifying by concurrent price move.
type WhaleDetector struct {
	store *marketstore.Store
	clock clock.Clock
	cfg   WhaleConfig
}

// NewWhaleDetector creates a Whale detector over store.
func NewWhaleDetector(store *marketstore.Store, c clock.Clock, cfg WhaleConfig) *WhaleDetector {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 10
	}
	if cfg.OlderWindow <= 0 {
		cfg.OlderWindow = 20
	}
	if cfg.MinBurstSizeUSD <= 0 {
		cfg.MinBurstSizeUSD = 100_000
	}
	if cfg.MinRatio <= 0 {
		cfg.MinRatio = 3
	}
	if cfg.DistributionRatio <= 0 {
		cfg.DistributionRatio = 5
	}
	return &WhaleDetector{store: store, clock: c, cfg: cfg}
}

func (d *WhaleDetector) Name() string { return "whale" }

// Detect implements Detector.
func (d *WhaleDetector) Detect() []Alert {
	snap := d.store.SnapshotAll()
	alerts := make([]model.WhaleAlert, 0)

	for symbol, st := range snap {
		if len(st.VolumeHistory) < d.cfg.OlderWindow || len(st.PriceHistory) < d.cfg.RecentWindow {
			continue
		}
		hist := st.VolumeHistory
		recentSize := hist[len(hist)-1].CumulativeQuoteVolume - hist[len(hist)-d.cfg.RecentWindow].CumulativeQuoteVolume
		olderSize := hist[len(hist)-1].CumulativeQuoteVolume - hist[len(hist)-d.cfg.OlderWindow].CumulativeQuoteVolume

		if recentSize < d.cfg.MinBurstSizeUSD {
			continue
		}
		recentRate := recentSize / float64(d.cfg.RecentWindow)
		olderRate := olderSize / float64(d.cfg.OlderWindow)
		if olderRate <= 0 {
			continue
		}
		ratio := recentRate / olderRate
		if ratio < d.cfg.MinRatio {
			continue
		}

		priceHist := st.PriceHistory
		priceUp := priceHist[len(priceHist)-1].Price >= priceHist[len(priceHist)-d.cfg.RecentWindow].Price

		var activity model.WhaleActivity
		switch {
		case ratio > d.cfg.DistributionRatio && priceUp:
			activity = model.WhaleAccumulation
		case ratio > d.cfg.DistributionRatio:
			activity = model.WhaleDistribution
		case priceUp:
			activity = model.WhaleLargeBuy
		default:
			activity = model.WhaleLargeSell
		}

		confidence := indicatorkit.Clamp(recentSize*25/1_000_000+ratio*50/10, 0, 100)
		dir := model.Long
		if !priceUp {
			dir = model.Short
		}

		alerts = append(alerts, model.WhaleAlert{
			Symbol:     symbol,
			Activity:   activity,
			SizeUSD:    recentSize,
			Ratio:      ratio,
			Confidence: confidence,
			Direction:  dir,
			Timestamp:  d.clock.Now(),
		})
	}

	sortBySymbol(alerts,
		func(a, b model.WhaleAlert) bool { return a.Confidence > b.Confidence },
		func(a model.WhaleAlert) string { return a.Symbol },
	)

	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
	}
	return out
}
